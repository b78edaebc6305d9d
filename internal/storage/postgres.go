package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kilimoalert/drought-engine/internal/domain"
	_ "github.com/lib/pq"
)

// PostgresStore persists the engine's data in PostgreSQL. Expected schema:
//
//	regions(id text primary key, name text, latitude double precision, longitude double precision)
//	ndvi_observations(region_id text, date date, value double precision,
//	    satellite_source text, cloud_cover_percent double precision, data_quality text,
//	    primary key (region_id, date))
//	soil_moisture_observations(region_id text, date date, moisture_percent double precision,
//	    soil_depth_cm int, data_source text, primary key (region_id, date))
//	weather_observations(region_id text, date date, temperature_max double precision,
//	    temperature_min double precision, temperature_avg double precision,
//	    precipitation_mm double precision, humidity_percent double precision,
//	    wind_speed_kmh double precision, evapotranspiration_mm double precision,
//	    data_source text, primary key (region_id, date))
//	risk_assessments(id bigserial primary key, region_id text, assessment_date date,
//	    risk_score double precision, risk_level text, ndvi_component double precision,
//	    soil_moisture_component double precision, weather_component double precision,
//	    predicted_risk_7_days double precision, predicted_risk_30_days double precision,
//	    confidence_score double precision, recommended_actions text, model_version text,
//	    created_at timestamptz default now(), unique (region_id, assessment_date))
//	alerts(id uuid primary key, region_id text, assessment_id bigint, alert_type text,
//	    severity text, priority text, title text, message text, sms_message text,
//	    active boolean, created_at timestamptz default now())
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens and pings a connection for the given DSN.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) UpsertRegion(ctx context.Context, region domain.Region) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO regions (id, name, latitude, longitude)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude`,
		region.ID, region.Name, region.Latitude, region.Longitude)
	if err != nil {
		return fmt.Errorf("upserting region %s: %w", region.ID, err)
	}
	return nil
}

func (s *PostgresStore) Regions(ctx context.Context) ([]domain.Region, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, latitude, longitude FROM regions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying regions: %w", err)
	}
	defer rows.Close()

	var regions []domain.Region
	for rows.Next() {
		var r domain.Region
		if err := rows.Scan(&r.ID, &r.Name, &r.Latitude, &r.Longitude); err != nil {
			return nil, fmt.Errorf("scanning region: %w", err)
		}
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

func (s *PostgresStore) Region(ctx context.Context, id string) (domain.Region, error) {
	var r domain.Region
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, latitude, longitude FROM regions WHERE id = $1`, id).
		Scan(&r.ID, &r.Name, &r.Latitude, &r.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Region{}, ErrNotFound
	}
	if err != nil {
		return domain.Region{}, fmt.Errorf("querying region %s: %w", id, err)
	}
	return r, nil
}

func (s *PostgresStore) InsertNDVI(ctx context.Context, obs ...domain.NDVIObservation) error {
	for _, o := range obs {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO ndvi_observations (region_id, date, value, satellite_source, cloud_cover_percent, data_quality)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (region_id, date) DO UPDATE
			SET value = EXCLUDED.value, satellite_source = EXCLUDED.satellite_source,
			    cloud_cover_percent = EXCLUDED.cloud_cover_percent, data_quality = EXCLUDED.data_quality`,
			o.RegionID, domain.DateOf(o.Date), o.Value, o.SatelliteSource, o.CloudCoverPct, o.Quality)
		if err != nil {
			return fmt.Errorf("inserting ndvi for %s: %w", o.RegionID, err)
		}
	}
	return nil
}

func (s *PostgresStore) InsertSoilMoisture(ctx context.Context, obs ...domain.SoilMoistureObservation) error {
	for _, o := range obs {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO soil_moisture_observations (region_id, date, moisture_percent, soil_depth_cm, data_source)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (region_id, date) DO UPDATE
			SET moisture_percent = EXCLUDED.moisture_percent, soil_depth_cm = EXCLUDED.soil_depth_cm,
			    data_source = EXCLUDED.data_source`,
			o.RegionID, domain.DateOf(o.Date), o.MoisturePercent, o.DepthCM, o.Source)
		if err != nil {
			return fmt.Errorf("inserting soil moisture for %s: %w", o.RegionID, err)
		}
	}
	return nil
}

func (s *PostgresStore) InsertWeather(ctx context.Context, obs ...domain.WeatherObservation) error {
	for _, o := range obs {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO weather_observations (region_id, date, temperature_max, temperature_min, temperature_avg,
			    precipitation_mm, humidity_percent, wind_speed_kmh, evapotranspiration_mm, data_source)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (region_id, date) DO UPDATE
			SET temperature_max = EXCLUDED.temperature_max, temperature_min = EXCLUDED.temperature_min,
			    temperature_avg = EXCLUDED.temperature_avg, precipitation_mm = EXCLUDED.precipitation_mm,
			    humidity_percent = EXCLUDED.humidity_percent, wind_speed_kmh = EXCLUDED.wind_speed_kmh,
			    evapotranspiration_mm = EXCLUDED.evapotranspiration_mm, data_source = EXCLUDED.data_source`,
			o.RegionID, domain.DateOf(o.Date), o.TemperatureMaxC, o.TemperatureMinC, o.TemperatureAvgC,
			o.PrecipitationMM, o.HumidityPercent, o.WindSpeedKMH, o.EvapotranspirationMM, o.Source)
		if err != nil {
			return fmt.Errorf("inserting weather for %s: %w", o.RegionID, err)
		}
	}
	return nil
}

func (s *PostgresStore) NDVIRange(ctx context.Context, regionID string, from, to time.Time) ([]domain.NDVIObservation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT region_id, date, value, satellite_source, cloud_cover_percent, data_quality
		FROM ndvi_observations
		WHERE region_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date`,
		regionID, domain.DateOf(from), domain.DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("querying ndvi: %w", err)
	}
	defer rows.Close()

	var out []domain.NDVIObservation
	for rows.Next() {
		var o domain.NDVIObservation
		if err := rows.Scan(&o.RegionID, &o.Date, &o.Value, &o.SatelliteSource, &o.CloudCoverPct, &o.Quality); err != nil {
			return nil, fmt.Errorf("scanning ndvi: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SoilMoistureRange(ctx context.Context, regionID string, from, to time.Time) ([]domain.SoilMoistureObservation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT region_id, date, moisture_percent, soil_depth_cm, data_source
		FROM soil_moisture_observations
		WHERE region_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date`,
		regionID, domain.DateOf(from), domain.DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("querying soil moisture: %w", err)
	}
	defer rows.Close()

	var out []domain.SoilMoistureObservation
	for rows.Next() {
		var o domain.SoilMoistureObservation
		if err := rows.Scan(&o.RegionID, &o.Date, &o.MoisturePercent, &o.DepthCM, &o.Source); err != nil {
			return nil, fmt.Errorf("scanning soil moisture: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresStore) WeatherRange(ctx context.Context, regionID string, from, to time.Time) ([]domain.WeatherObservation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT region_id, date, temperature_max, temperature_min, temperature_avg,
		       precipitation_mm, humidity_percent, wind_speed_kmh, evapotranspiration_mm, data_source
		FROM weather_observations
		WHERE region_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date`,
		regionID, domain.DateOf(from), domain.DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("querying weather: %w", err)
	}
	defer rows.Close()

	var out []domain.WeatherObservation
	for rows.Next() {
		var o domain.WeatherObservation
		if err := rows.Scan(&o.RegionID, &o.Date, &o.TemperatureMaxC, &o.TemperatureMinC, &o.TemperatureAvgC,
			&o.PrecipitationMM, &o.HumidityPercent, &o.WindSpeedKMH, &o.EvapotranspirationMM, &o.Source); err != nil {
			return nil, fmt.Errorf("scanning weather: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpsertAssessment writes the row for (region, date), replacing any prior
// one. The row's ID and original creation time survive replacement.
func (s *PostgresStore) UpsertAssessment(ctx context.Context, a *domain.Assessment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO risk_assessments (region_id, assessment_date, risk_score, risk_level,
		    ndvi_component, soil_moisture_component, weather_component,
		    predicted_risk_7_days, predicted_risk_30_days,
		    confidence_score, recommended_actions, model_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (region_id, assessment_date) DO UPDATE
		SET risk_score = EXCLUDED.risk_score, risk_level = EXCLUDED.risk_level,
		    ndvi_component = EXCLUDED.ndvi_component,
		    soil_moisture_component = EXCLUDED.soil_moisture_component,
		    weather_component = EXCLUDED.weather_component,
		    predicted_risk_7_days = EXCLUDED.predicted_risk_7_days,
		    predicted_risk_30_days = EXCLUDED.predicted_risk_30_days,
		    confidence_score = EXCLUDED.confidence_score,
		    recommended_actions = EXCLUDED.recommended_actions,
		    model_version = EXCLUDED.model_version
		RETURNING id, created_at`,
		a.RegionID, domain.DateOf(a.Date), a.RiskScore, string(a.RiskLevel),
		a.NDVIComponent, a.SoilMoistureComponent, a.WeatherComponent,
		nullableFloat(a.PredictedRisk7Day), nullableFloat(a.PredictedRisk30Day),
		a.ConfidenceScore, a.RecommendedActions, a.ModelVersion).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting assessment for %s: %w", a.RegionID, err)
	}
	a.Date = domain.DateOf(a.Date)
	return nil
}

func (s *PostgresStore) AssessmentOn(ctx context.Context, regionID string, date time.Time) (domain.Assessment, error) {
	row := s.db.QueryRowContext(ctx, assessmentSelect+` WHERE region_id = $1 AND assessment_date = $2`,
		regionID, domain.DateOf(date))
	a, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Assessment{}, ErrNotFound
	}
	return a, err
}

func (s *PostgresStore) AssessmentsRange(ctx context.Context, regionID string, from, to time.Time) ([]domain.Assessment, error) {
	rows, err := s.db.QueryContext(ctx,
		assessmentSelect+` WHERE region_id = $1 AND assessment_date BETWEEN $2 AND $3 ORDER BY assessment_date`,
		regionID, domain.DateOf(from), domain.DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("querying assessments: %w", err)
	}
	defer rows.Close()
	return collectAssessments(rows)
}

func (s *PostgresStore) RecentAboveScore(ctx context.Context, since time.Time, minScore float64) ([]domain.Assessment, error) {
	rows, err := s.db.QueryContext(ctx,
		assessmentSelect+` WHERE assessment_date >= $1 AND risk_score >= $2 ORDER BY region_id, assessment_date`,
		domain.DateOf(since), minScore)
	if err != nil {
		return nil, fmt.Errorf("querying assessments: %w", err)
	}
	defer rows.Close()
	return collectAssessments(rows)
}

const assessmentSelect = `
	SELECT id, region_id, assessment_date, risk_score, risk_level,
	       ndvi_component, soil_moisture_component, weather_component,
	       predicted_risk_7_days, predicted_risk_30_days,
	       confidence_score, recommended_actions, model_version, created_at
	FROM risk_assessments`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row rowScanner) (domain.Assessment, error) {
	var a domain.Assessment
	var level string
	var pred7, pred30 sql.NullFloat64
	err := row.Scan(&a.ID, &a.RegionID, &a.Date, &a.RiskScore, &level,
		&a.NDVIComponent, &a.SoilMoistureComponent, &a.WeatherComponent,
		&pred7, &pred30, &a.ConfidenceScore, &a.RecommendedActions, &a.ModelVersion, &a.CreatedAt)
	if err != nil {
		return domain.Assessment{}, err
	}
	a.RiskLevel = domain.RiskLevel(level)
	if pred7.Valid {
		a.PredictedRisk7Day = &pred7.Float64
	}
	if pred30.Valid {
		a.PredictedRisk30Day = &pred30.Float64
	}
	return a, nil
}

func collectAssessments(rows *sql.Rows) ([]domain.Assessment, error) {
	var out []domain.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assessment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertAlert(ctx context.Context, alert domain.Alert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, region_id, assessment_id, alert_type, severity, priority,
		    title, message, sms_message, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		alert.ID, alert.RegionID, alert.AssessmentID, alert.Type, alert.Severity, alert.Priority,
		alert.Title, alert.Message, alert.SMSMessage, alert.Active, alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting alert %s: %w", alert.ID, err)
	}
	return nil
}

func (s *PostgresStore) HasActiveAlert(ctx context.Context, regionID string, assessmentID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM alerts WHERE region_id = $1 AND assessment_id = $2 AND active
		)`, regionID, assessmentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking active alert: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Alerts(ctx context.Context, activeOnly bool) ([]domain.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, region_id, assessment_id, alert_type, severity, priority,
		       title, message, sms_message, active, created_at
		FROM alerts
		WHERE ($1 = false OR active)
		ORDER BY created_at DESC`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(&a.ID, &a.RegionID, &a.AssessmentID, &a.Type, &a.Severity, &a.Priority,
			&a.Title, &a.Message, &a.SMSMessage, &a.Active, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
