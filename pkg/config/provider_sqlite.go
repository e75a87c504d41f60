package config

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/chrissnell/pixeltrend/pkg/migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteProvider implements ConfigProvider for SQLite database configuration.
// Bands live in their own table; every other setting is a dotted key in the
// settings table (for example "harmonic.frequencies" = "1,2,3").
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// InitSchema brings the configuration tables up to the latest migration
func (s *SQLiteProvider) InitSchema() error {
	if _, err := s.Migrator().MigrateUp(); err != nil {
		return fmt.Errorf("failed to migrate configuration schema: %w", err)
	}
	return nil
}

// SchemaVersion reports the applied configuration schema migration
func (s *SQLiteProvider) SchemaVersion() (int, error) {
	return s.Migrator().Version()
}

// Migrator returns a migrator over the embedded configuration schema
func (s *SQLiteProvider) Migrator() *migrate.Migrator {
	return migrate.NewMigrator(s.db, migrate.NewFSProvider(migrations, "migrations", "schema_migrations"))
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config, err := s.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	bands, err := s.GetBands()
	if err != nil {
		return nil, fmt.Errorf("failed to load bands: %w", err)
	}
	config.Bands = bands

	return config, nil
}

// GetBands returns band configurations in their configured order
func (s *SQLiteProvider) GetBands() ([]BandData, error) {
	rows, err := s.db.Query(`SELECT name, improvement, frequencies FROM bands ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bands: %w", err)
	}
	defer rows.Close()

	var bands []BandData
	for rows.Next() {
		var band BandData
		var improvement sql.NullInt64
		var frequencies sql.NullString

		if err := rows.Scan(&band.Name, &improvement, &frequencies); err != nil {
			return nil, fmt.Errorf("failed to scan band row: %w", err)
		}
		if improvement.Valid {
			band.Improvement = int(improvement.Int64)
		}
		if frequencies.Valid && frequencies.String != "" {
			band.Frequencies, err = parseInts(frequencies.String)
			if err != nil {
				return nil, fmt.Errorf("band %s frequencies: %w", band.Name, err)
			}
		}
		bands = append(bands, band)
	}
	return bands, rows.Err()
}

// GetSettings returns every section except the band list
func (s *SQLiteProvider) GetSettings() (*ConfigData, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting row: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r := settingsReader{values: values}
	config := &ConfigData{
		Harmonic: HarmonicData{
			Frequencies: r.getInts("harmonic.frequencies"),
			Detrend:     r.getBool("harmonic.detrend"),
			Seasonality: r.getBool("harmonic.seasonality"),
		},
		Segments: SegmentsData{
			Frequencies:  r.getInts("segments.frequencies"),
			Detrend:      r.getBool("segments.detrend"),
			FillGaps:     r.getBool("segments.fill_gaps"),
			FeatherStart: r.getString("segments.feather_start"),
			FeatherEnd:   r.getString("segments.feather_end"),
			QueryDates:   r.getStrings("segments.query_dates"),
		},
		Change: ChangeData{
			Loss:          r.thresholds("change.loss"),
			Gain:          r.thresholds("change.gain"),
			Rule:          r.getString("change.rule"),
			HowManyToPull: r.getInt("change.how_many_to_pull"),
			StartYear:     r.getInt("change.start_year"),
			EndYear:       r.getInt("change.end_year"),
		},
		Batch: BatchData{
			Workers: r.getInt("batch.workers"),
			Format:  r.getString("batch.format"),
		},
	}
	if r.hasPrefix("vertices.") {
		config.Vertices = &VertexData{
			DespikeWindow:   r.getInt("vertices.despike_window"),
			MinSegmentYears: r.getInt("vertices.min_segment_years"),
			Penalty:         r.getFloat("vertices.penalty"),
			MaxSegments:     r.getInt("vertices.max_segments"),
		}
	}

	if r.err != nil {
		return nil, r.err
	}
	return config, nil
}

// IsReadOnly returns false since SQLite configuration can be modified
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveConfig replaces the stored configuration with configData
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	// Start transaction
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, query := range []string{"DELETE FROM bands", "DELETE FROM settings"} {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to clear existing config: %w", err)
		}
	}

	for i, band := range configData.Bands {
		if err := s.insertBand(tx, i, &band); err != nil {
			return fmt.Errorf("failed to insert band %s: %w", band.Name, err)
		}
	}

	settings := flattenSettings(configData)
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := tx.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)`, k, settings[k]); err != nil {
			return fmt.Errorf("failed to insert setting %s: %w", k, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteProvider) insertBand(tx *sql.Tx, position int, band *BandData) error {
	query := `INSERT INTO bands (name, position, improvement, frequencies) VALUES (?, ?, ?, ?)`
	_, err := tx.Exec(query, band.Name, position, nullInt(band.Improvement), nullString(formatInts(band.Frequencies)))
	return err
}

// flattenSettings renders every non-band section as dotted keys. Empty
// values are left out so they read back as zero values.
func flattenSettings(c *ConfigData) map[string]string {
	out := make(map[string]string)
	set := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	setBool := func(key string, v bool) {
		if v {
			out[key] = "true"
		}
	}
	setInt := func(key string, v int) {
		if v != 0 {
			out[key] = strconv.Itoa(v)
		}
	}
	setFloat := func(key string, v float64) {
		out[key] = strconv.FormatFloat(v, 'g', -1, 64)
	}

	set("harmonic.frequencies", formatInts(c.Harmonic.Frequencies))
	setBool("harmonic.detrend", c.Harmonic.Detrend)
	setBool("harmonic.seasonality", c.Harmonic.Seasonality)

	set("segments.frequencies", formatInts(c.Segments.Frequencies))
	setBool("segments.detrend", c.Segments.Detrend)
	setBool("segments.fill_gaps", c.Segments.FillGaps)
	set("segments.feather_start", c.Segments.FeatherStart)
	set("segments.feather_end", c.Segments.FeatherEnd)
	set("segments.query_dates", strings.Join(c.Segments.QueryDates, ","))

	for prefix, th := range map[string]ThresholdData{"change.loss": c.Change.Loss, "change.gain": c.Change.Gain} {
		setFloat(prefix+".magnitude", th.Magnitude)
		setFloat(prefix+".slope", th.Slope)
		setFloat(prefix+".duration", th.Duration)
	}
	set("change.rule", c.Change.Rule)
	setInt("change.how_many_to_pull", c.Change.HowManyToPull)
	setInt("change.start_year", c.Change.StartYear)
	setInt("change.end_year", c.Change.EndYear)

	if c.Vertices != nil {
		out["vertices.despike_window"] = strconv.Itoa(c.Vertices.DespikeWindow)
		out["vertices.min_segment_years"] = strconv.Itoa(c.Vertices.MinSegmentYears)
		setFloat("vertices.penalty", c.Vertices.Penalty)
		setInt("vertices.max_segments", c.Vertices.MaxSegments)
	}

	setInt("batch.workers", c.Batch.Workers)
	set("batch.format", c.Batch.Format)
	return out
}

// settingsReader converts stored strings, keeping the first parse error
type settingsReader struct {
	values map[string]string
	err    error
}

func (r *settingsReader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("setting %s: %w", key, err)
	}
}

func (r *settingsReader) getString(key string) string {
	return r.values[key]
}

func (r *settingsReader) getStrings(key string) []string {
	v := r.values[key]
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func (r *settingsReader) getBool(key string) bool {
	v, ok := r.values[key]
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, err)
	}
	return b
}

func (r *settingsReader) getInt(key string) int {
	v, ok := r.values[key]
	if !ok {
		return 0
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, err)
	}
	return i
}

func (r *settingsReader) getFloat(key string) float64 {
	v, ok := r.values[key]
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, err)
	}
	return f
}

func (r *settingsReader) getInts(key string) []int {
	v, ok := r.values[key]
	if !ok || v == "" {
		return nil
	}
	out, err := parseInts(v)
	if err != nil {
		r.fail(key, err)
	}
	return out
}

func (r *settingsReader) thresholds(prefix string) ThresholdData {
	return ThresholdData{
		Magnitude: r.getFloat(prefix + ".magnitude"),
		Slope:     r.getFloat(prefix + ".slope"),
		Duration:  r.getFloat(prefix + ".duration"),
	}
}

func (r *settingsReader) hasPrefix(prefix string) bool {
	for k := range r.values {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, p := range strings.Split(s, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

func formatInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// Helper functions for handling nullable fields
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(i int) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: int64(i), Valid: true}
}
