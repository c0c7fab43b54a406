package parser

import (
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestPRIRoundTrip(t *testing.T) {
	p := New()
	for pri := 0; pri <= 191; pri++ {
		raw := []byte(priFrame(pri))
		rec := p.Parse(raw)
		if rec.Facility == nil || rec.Severity == nil {
			t.Fatalf("pri %d: facility/severity unset", pri)
		}
		if *rec.Facility != pri>>3 {
			t.Errorf("pri %d: facility = %d, want %d", pri, *rec.Facility, pri>>3)
		}
		if *rec.Severity != pri&7 {
			t.Errorf("pri %d: severity = %d, want %d", pri, *rec.Severity, pri&7)
		}
	}
}

func priFrame(pri int) string {
	return "<" + itoa(pri) + ">1 - - - - - -"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func TestRFC5424Examples(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantFacility int
		wantSeverity int
		wantRFC      RFC
		wantTime     string
		wantHostname string
		wantAppName  string
		wantMsgID    string
		wantMessage  string
	}{
		{
			name:         "rfc5424 with BOM",
			input:        `<34>1 1985-04-12T23:20:50.52Z mymachine.example.com su - ID47 - BOM'su root' failed for lonvick on /dev/pts/8`,
			wantFacility: 4,
			wantSeverity: 2,
			wantRFC:      RFC5424,
			wantTime:     "1985-04-12T23:20:50.52Z",
			wantHostname: "mymachine.example.com",
			wantAppName:  "su",
			wantMsgID:    "ID47",
			wantMessage:  "'su root' failed for lonvick on /dev/pts/8",
		},
		{
			name:         "negative offset normalized to UTC",
			input:        `<34>1 1985-04-12T19:20:50.52-04:00 mymachine.example.com su - ID47 - test`,
			wantFacility: 4,
			wantSeverity: 2,
			wantRFC:      RFC5424,
			wantTime:     "1985-04-12T23:20:50.52Z",
		},
		{
			name:         "microsecond precision normalized to UTC",
			input:        `<34>1 2003-08-24T05:14:15.000003-07:00 mymachine.example.com su - ID47 - test`,
			wantFacility: 4,
			wantSeverity: 2,
			wantRFC:      RFC5424,
			wantTime:     "2003-08-24T12:14:15.000003Z",
		},
		{
			name:         "UDP scenario record",
			input:        `<165>1 2003-08-24T12:14:15.000003Z 192.0.2.1 myproc 8710 - - %% It's time to make the do-nuts.`,
			wantFacility: 20,
			wantSeverity: 5,
			wantRFC:      RFC5424,
			wantTime:     "2003-08-24T12:14:15.000003Z",
			wantHostname: "192.0.2.1",
			wantAppName:  "myproc",
			wantMessage:  "%% It's time to make the do-nuts.",
		},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := p.Parse([]byte(tt.input))
			if rec.RFC != tt.wantRFC {
				t.Errorf("RFC = %v, want %v", rec.RFC, tt.wantRFC)
			}
			if rec.Facility == nil || *rec.Facility != tt.wantFacility {
				t.Errorf("Facility = %v, want %d", rec.Facility, tt.wantFacility)
			}
			if rec.Severity == nil || *rec.Severity != tt.wantSeverity {
				t.Errorf("Severity = %v, want %d", rec.Severity, tt.wantSeverity)
			}
			if tt.wantTime != "" {
				want, err := time.Parse(time.RFC3339Nano, tt.wantTime)
				if err != nil {
					t.Fatalf("bad want time: %v", err)
				}
				if rec.Timestamp == nil || !rec.Timestamp.Equal(want) {
					t.Errorf("Timestamp = %v, want %v", rec.Timestamp, want)
				}
			}
			if tt.wantHostname != "" {
				if rec.Hostname == nil || *rec.Hostname != tt.wantHostname {
					t.Errorf("Hostname = %v, want %q", rec.Hostname, tt.wantHostname)
				}
			}
			if tt.wantAppName != "" {
				if rec.AppName == nil || *rec.AppName != tt.wantAppName {
					t.Errorf("AppName = %v, want %q", rec.AppName, tt.wantAppName)
				}
			}
			if tt.wantMsgID != "" {
				if rec.MessageID == nil || *rec.MessageID != tt.wantMsgID {
					t.Errorf("MessageID = %v, want %q", rec.MessageID, tt.wantMsgID)
				}
			}
			if tt.wantMessage != "" && rec.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", rec.Message, tt.wantMessage)
			}
		})
	}
}

func TestRFC5424OverPreciseFractionFallsBack(t *testing.T) {
	p := New()
	rec := p.Parse([]byte(`<34>1 2003-08-24T05:14:15.000000003-07:00 mymachine.example.com su - ID47 - test`))
	if rec.RFC != RFC3164 {
		t.Fatalf("RFC = %v, want rfc3164 (graceful degrade)", rec.RFC)
	}
	if rec.Facility == nil || *rec.Facility != 4 || rec.Severity == nil || *rec.Severity != 2 {
		t.Fatalf("facility/severity not preserved: %v/%v", rec.Facility, rec.Severity)
	}
	if rec.Timestamp != nil {
		t.Errorf("Timestamp = %v, want absent", rec.Timestamp)
	}
	if rec.Message == "" {
		t.Errorf("Message is empty, want the portion after the failed timestamp")
	}
}

func TestRFC3164Examples(t *testing.T) {
	fixedNow := fixedClock(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name         string
		input        string
		wantFacility int
		wantSeverity int
		wantTime     string
		wantHostname string
		wantIP       string
		wantAppName  string
		wantProcID   string
		wantMessage  string
		hostnameAbs  bool
	}{
		{
			name:         "classic, year defaults to now",
			input:        `<34>Oct 11 22:14:15 mymachine su: 'su root' failed for lonvick on /dev/pts/8`,
			wantFacility: 4,
			wantSeverity: 2,
			wantTime:     "2024-10-11T22:14:15Z",
			wantHostname: "mymachine",
			wantMessage:  "'su root' failed for lonvick on /dev/pts/8",
		},
		{
			name:         "ctime style, CST maps to Europe/Brussels",
			input:        `<165>Aug 24 05:34:00 CST 1987 mymachine myproc[10]: %% test`,
			wantFacility: 20,
			wantSeverity: 5,
			wantTime:     "1987-08-24T03:34:00Z",
			wantHostname: "mymachine",
			wantAppName:  "myproc",
			wantProcID:   "10",
		},
		{
			name:         "explicit year with TZ-N and bare IPv4",
			input:        `<0>1990 Oct 22 10:52:01 TZ-6 scapegoat.dmz.example.org 10.1.2.3 sched[0]: That's All Folks!`,
			wantFacility: 0,
			wantSeverity: 0,
			wantTime:     "1990-10-22T16:52:01Z",
			wantHostname: "scapegoat.dmz.example.org",
			wantIP:       "10.1.2.3",
			wantAppName:  "sched",
			wantProcID:   "0",
			wantMessage:  "That's All Folks!",
		},
		{
			name:         "Cisco CUCM dialect with sequence number and no hostname",
			input:        `<189>8103: Apr 20 2025 10:45:20 PM.601 UTC : %UC_AUDITLOG-5-AdministrativeEvent: Test message`,
			wantFacility: 23,
			wantSeverity: 5,
			wantTime:     "2025-04-20T22:45:20.601Z",
			hostnameAbs:  true,
			wantMessage:  "Test message",
		},
		{
			name:         "Cisco CUCM dialect, second fixture",
			input:        `<189>May 1 2019 07:10:40 PM.781 UTC : %UC_AUDITLOG-5-AdministrativeEvent: Test message`,
			wantFacility: 23,
			wantSeverity: 5,
			wantTime:     "2019-05-01T19:10:40.781Z",
			hostnameAbs:  true,
			wantMessage:  "Test message",
		},
	}

	p := New(WithClock(fixedNow))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := p.Parse([]byte(tt.input))
			if rec.Facility == nil || *rec.Facility != tt.wantFacility {
				t.Errorf("Facility = %v, want %d", rec.Facility, tt.wantFacility)
			}
			if rec.Severity == nil || *rec.Severity != tt.wantSeverity {
				t.Errorf("Severity = %v, want %d", rec.Severity, tt.wantSeverity)
			}
			if tt.wantTime != "" {
				want, err := time.Parse(time.RFC3339Nano, tt.wantTime)
				if err != nil {
					t.Fatalf("bad want time: %v", err)
				}
				if rec.Timestamp == nil || !rec.Timestamp.Equal(want) {
					t.Errorf("Timestamp = %v, want %v", rec.Timestamp, want)
				}
			}
			if tt.hostnameAbs {
				if rec.Hostname != nil {
					t.Errorf("Hostname = %v, want absent", *rec.Hostname)
				}
			} else if tt.wantHostname != "" {
				if rec.Hostname == nil || *rec.Hostname != tt.wantHostname {
					t.Errorf("Hostname = %v, want %q", rec.Hostname, tt.wantHostname)
				}
			}
			if tt.wantIP != "" {
				if rec.IPAddress == nil || *rec.IPAddress != tt.wantIP {
					t.Errorf("IPAddress = %v, want %q", rec.IPAddress, tt.wantIP)
				}
			}
			if tt.wantAppName != "" {
				if rec.AppName == nil || *rec.AppName != tt.wantAppName {
					t.Errorf("AppName = %v, want %q", rec.AppName, tt.wantAppName)
				}
			}
			if tt.wantProcID != "" {
				if rec.ProcessID == nil || *rec.ProcessID != tt.wantProcID {
					t.Errorf("ProcessID = %v, want %q", rec.ProcessID, tt.wantProcID)
				}
			}
			if tt.wantMessage != "" && rec.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", rec.Message, tt.wantMessage)
			}
		})
	}
}

func TestTotalFailureScenarios(t *testing.T) {
	p := New()

	t.Run("no PRI at all", func(t *testing.T) {
		rec := p.Parse([]byte("Use the BFG!"))
		if rec.Facility != nil || rec.Severity != nil {
			t.Errorf("expected absent facility/severity, got %v/%v", rec.Facility, rec.Severity)
		}
		if rec.Message != "Use the BFG!" {
			t.Errorf("Message = %q, want %q", rec.Message, "Use the BFG!")
		}
	})

	t.Run("unparseable timestamp preserves PRI and whole frame", func(t *testing.T) {
		raw := "<34>Invalid timestamp format mymachine su: Test message"
		rec := p.Parse([]byte(raw))
		if rec.Facility == nil || *rec.Facility != 4 || rec.Severity == nil || *rec.Severity != 2 {
			t.Fatalf("facility/severity not preserved: %v/%v", rec.Facility, rec.Severity)
		}
		if rec.Timestamp != nil {
			t.Errorf("Timestamp = %v, want absent", rec.Timestamp)
		}
		if rec.Message != raw {
			t.Errorf("Message = %q, want entire original frame %q", rec.Message, raw)
		}
	})
}

func TestStructuredDataEscapingRoundTrip(t *testing.T) {
	values := []string{
		`plain`,
		`has a "quote" inside`,
		`has a ] bracket inside`,
		`backslash \ alone-ish`,
	}
	for _, v := range values {
		escaped := escapeSDValue(v)
		raw := `<34>1 - - - - - [id k="` + escaped + `"] msg`
		rec := New().Parse([]byte(raw))
		got, ok := rec.StructuredData["id"]["k"]
		if !ok {
			t.Fatalf("value %q: structured_data[id][k] missing (data=%v)", v, rec.StructuredData)
		}
		if got != v {
			t.Errorf("value %q: round-tripped to %q", v, got)
		}
	}
}

func TestFieldTooLongLeavesFieldUnset(t *testing.T) {
	longHostname := make([]byte, 256)
	for i := range longHostname {
		longHostname[i] = 'h'
	}
	raw := "<34>1 - " + string(longHostname) + " su - ID47 - test"
	rec := New().Parse([]byte(raw))
	if rec.Hostname != nil {
		t.Errorf("Hostname = %v, want unset (field_too_long)", *rec.Hostname)
	}
	if rec.AppName == nil || *rec.AppName != "su" {
		t.Errorf("AppName = %v, want %q (parsing continues past the oversized field)", rec.AppName, "su")
	}
}

func TestDefaultPackageParse(t *testing.T) {
	rec := Parse([]byte("<34>1 - - - - - - test"))
	if rec.Facility == nil || *rec.Facility != 4 {
		t.Errorf("Facility = %v, want 4", rec.Facility)
	}
}
