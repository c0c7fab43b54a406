package sink

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"syslogd/internal/parser"
)

// RecordModel is the GORM model backing SQLiteSink.
type RecordModel struct {
	ID             uint      `gorm:"primaryKey"`
	RFC            string    `gorm:"index;not null"`
	Timestamp      time.Time `gorm:"index"`
	Hostname       string    `gorm:"index"`
	Facility       int       `gorm:"index"`
	Severity       int       `gorm:"index"`
	AppName        string    `gorm:"index"`
	ProcessID      string
	MessageID      string
	RawIPAddress   string `gorm:"index"`
	Message        string `gorm:"type:text"`
	StructuredData string `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"index;autoCreateTime"`
}

// TableName overrides GORM's pluralized default.
func (RecordModel) TableName() string {
	return "syslog_records"
}

// SQLiteSink is a durable Sink backed by GORM over SQLite.
type SQLiteSink struct {
	db *gorm.DB
}

// NewSQLiteSink opens (creating if necessary) the SQLite database at
// dbPath and auto-migrates the schema.
func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sink: open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sink: underlying database: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	s := &SQLiteSink{db: db}
	if err := s.db.AutoMigrate(&RecordModel{}); err != nil {
		return nil, fmt.Errorf("sink: migrate schema: %w", err)
	}
	return s, nil
}

func toModel(rec *parser.Record) RecordModel {
	var m RecordModel
	if rec.RFC == parser.RFC5424 {
		m.RFC = "rfc5424"
	} else {
		m.RFC = "rfc3164"
	}
	if rec.Timestamp != nil {
		m.Timestamp = *rec.Timestamp
	}
	if rec.Hostname != nil {
		m.Hostname = *rec.Hostname
	}
	if rec.Facility != nil {
		m.Facility = *rec.Facility
	}
	if rec.Severity != nil {
		m.Severity = *rec.Severity
	}
	if rec.AppName != nil {
		m.AppName = *rec.AppName
	}
	if rec.ProcessID != nil {
		m.ProcessID = *rec.ProcessID
	}
	if rec.MessageID != nil {
		m.MessageID = *rec.MessageID
	}
	if rec.RawIPAddress != nil {
		m.RawIPAddress = *rec.RawIPAddress
	}
	m.Message = rec.Message
	m.StructuredData = encodeStructuredData(rec.StructuredData)
	return m
}

func fromModel(m RecordModel) *parser.Record {
	rec := &parser.Record{Message: m.Message}
	if m.RFC == "rfc5424" {
		rec.RFC = parser.RFC5424
	} else {
		rec.RFC = parser.RFC3164
	}
	if !m.Timestamp.IsZero() {
		ts := m.Timestamp
		rec.Timestamp = &ts
	}
	if m.Hostname != "" {
		h := m.Hostname
		rec.Hostname = &h
	}
	if m.AppName != "" {
		a := m.AppName
		rec.AppName = &a
	}
	if m.ProcessID != "" {
		p := m.ProcessID
		rec.ProcessID = &p
	}
	if m.MessageID != "" {
		mid := m.MessageID
		rec.MessageID = &mid
	}
	if m.RawIPAddress != "" {
		ip := m.RawIPAddress
		rec.RawIPAddress = &ip
	}
	f := m.Facility
	rec.Facility = &f
	sv := m.Severity
	rec.Severity = &sv
	rec.StructuredData = decodeStructuredData(m.StructuredData)
	return rec
}

// encodeStructuredData flattens the nested SD map into an "id@p=v;..."
// string; it is a storage convenience, not a wire format. Entry order
// follows map iteration and is not fixed.
func encodeStructuredData(sd map[string]map[string]string) string {
	if len(sd) == 0 {
		return ""
	}
	var b strings.Builder
	first := true
	for id, params := range sd {
		for k, v := range params {
			if !first {
				b.WriteByte(';')
			}
			first = false
			fmt.Fprintf(&b, "%s@%s=%s", id, k, v)
		}
	}
	return b.String()
}

func decodeStructuredData(s string) map[string]map[string]string {
	if s == "" {
		return nil
	}
	sd := make(map[string]map[string]string)
	for _, entry := range strings.Split(s, ";") {
		at := strings.IndexByte(entry, '@')
		eq := strings.IndexByte(entry, '=')
		if at < 0 || eq < 0 || eq < at {
			continue
		}
		id, key, val := entry[:at], entry[at+1:eq], entry[eq+1:]
		if sd[id] == nil {
			sd[id] = make(map[string]string)
		}
		sd[id][key] = val
	}
	return sd
}

// Store persists rec.
func (s *SQLiteSink) Store(rec *parser.Record) error {
	model := toModel(rec)
	if err := s.db.Create(&model).Error; err != nil {
		return fmt.Errorf("sink: store record: %w", err)
	}
	return nil
}

func (s *SQLiteSink) applyFilters(query *gorm.DB, f QueryFilters) *gorm.DB {
	if !f.StartTime.IsZero() {
		query = query.Where("timestamp >= ?", f.StartTime)
	}
	if !f.EndTime.IsZero() {
		query = query.Where("timestamp <= ?", f.EndTime)
	}
	if f.Hostname != "" {
		query = query.Where("hostname = ?", f.Hostname)
	}
	if len(f.Hostnames) > 0 {
		query = query.Where("hostname IN ?", f.Hostnames)
	}
	if f.AppName != "" {
		query = query.Where("app_name = ?", f.AppName)
	}
	if len(f.Severities) > 0 {
		query = query.Where("severity IN ?", f.Severities)
	}
	if len(f.Facilities) > 0 {
		query = query.Where("facility IN ?", f.Facilities)
	}
	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where("LOWER(message) LIKE ? OR LOWER(hostname) LIKE ? OR LOWER(app_name) LIKE ?",
			pattern, pattern, pattern)
	}
	return query
}

// Query returns records matching f, newest first.
func (s *SQLiteSink) Query(f QueryFilters) ([]*parser.Record, error) {
	query := s.applyFilters(s.db.Model(&RecordModel{}), f).Order("timestamp DESC")

	limit := f.Limit
	if limit <= 0 {
		limit = 1000
	}
	query = query.Limit(limit)
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}

	var models []RecordModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("sink: query records: %w", err)
	}
	records := make([]*parser.Record, len(models))
	for i, m := range models {
		records[i] = fromModel(m)
	}
	return records, nil
}

// QueryWithCount is Query plus the total matches before Limit/Offset.
func (s *SQLiteSink) QueryWithCount(f QueryFilters) ([]*parser.Record, int64, error) {
	var total int64
	if err := s.applyFilters(s.db.Model(&RecordModel{}), f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("sink: count records: %w", err)
	}
	records, err := s.Query(f)
	return records, total, err
}

// GetFilterOptions returns the distinct hostnames, app names, facilities
// and severities currently stored.
func (s *SQLiteSink) GetFilterOptions() (*FilterOptions, error) {
	opts := &FilterOptions{
		Hostnames:  make([]string, 0),
		AppNames:   make([]string, 0),
		Facilities: make([]int, 0),
		Severities: make([]int, 0),
	}

	if err := s.db.Model(&RecordModel{}).Distinct("hostname").
		Where("hostname != ?", "").Order("hostname ASC").
		Pluck("hostname", &opts.Hostnames).Error; err != nil {
		return nil, fmt.Errorf("sink: hostnames: %w", err)
	}
	if err := s.db.Model(&RecordModel{}).Distinct("app_name").
		Where("app_name != ?", "").Order("app_name ASC").
		Pluck("app_name", &opts.AppNames).Error; err != nil {
		return nil, fmt.Errorf("sink: app names: %w", err)
	}
	if err := s.db.Model(&RecordModel{}).Distinct("facility").
		Order("facility ASC").Pluck("facility", &opts.Facilities).Error; err != nil {
		return nil, fmt.Errorf("sink: facilities: %w", err)
	}
	if err := s.db.Model(&RecordModel{}).Distinct("severity").
		Order("severity ASC").Pluck("severity", &opts.Severities).Error; err != nil {
		return nil, fmt.Errorf("sink: severities: %w", err)
	}
	return opts, nil
}

// DeleteOlderThan removes records older than now minus age and reclaims
// space with VACUUM when anything was deleted.
func (s *SQLiteSink) DeleteOlderThan(age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)
	result := s.db.Where("timestamp < ?", cutoff).Delete(&RecordModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("sink: delete old records: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		sqlDB, err := s.db.DB()
		if err != nil {
			return result.RowsAffected, fmt.Errorf("sink: deleted %d rows but failed to get db: %w", result.RowsAffected, err)
		}
		if _, err := sqlDB.Exec("VACUUM"); err != nil {
			return result.RowsAffected, fmt.Errorf("sink: deleted %d rows but vacuum failed: %w", result.RowsAffected, err)
		}
	}
	return result.RowsAffected, nil
}

// Close closes the underlying database connection.
func (s *SQLiteSink) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
