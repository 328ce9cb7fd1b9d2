package sensor

import (
	"encoding/json"
	"time"
)

// MissingValue is substituted for any channel whose statistic the upstream
// did not report.
const MissingValue = -99.0

// SiteReading is the normalized reading served to the controller.
// Every field is always populated; absent channels carry MissingValue.
type SiteReading struct {
	Temperature         float64 `json:"temperature"`
	Humidity            float64 `json:"humidity"`
	CO2                 float64 `json:"co2"`
	AmbientLight        float64 `json:"ambient_light"`
	TVOC                float64 `json:"tvoc"`
	ParticulateMatter   float64 `json:"particulate_matter"`
	ParticulateMatter25 float64 `json:"particulate_matter_2_5"`
	ParticulateMatter10 float64 `json:"particulate_matter_10"`
}

// Statistic is the per-channel summary for one time bucket.
type Statistic struct {
	Min    *float64 `json:"min"`
	Median *float64 `json:"median"`
	Max    *float64 `json:"max"`
}

// Bucket holds the statistics of every channel for one timestamp.
type Bucket struct {
	Temperature         *Statistic `json:"temperature"`
	Humidity            *Statistic `json:"humidity"`
	CO2                 *Statistic `json:"co2"`
	AmbientLight        *Statistic `json:"ambient_light"`
	TVOC                *Statistic `json:"tvoc"`
	ParticulateMatter   *Statistic `json:"particulate_matter"`
	ParticulateMatter25 *Statistic `json:"particulate_matter_2_5"`
	ParticulateMatter10 *Statistic `json:"particulate_matter_10"`
}

// DataRange bounds the timestamps present in a RawSensorResponse.
type DataRange struct {
	MinimumDate string `json:"minimum_date"`
	MaximumDate string `json:"maximum_date" validate:"required"`
}

// RawSensorResponse is the payload returned by the readings endpoint.
type RawSensorResponse struct {
	// Pagination is passed through untouched.
	Pagination json.RawMessage   `json:"pagination,omitempty"`
	DataRange  DataRange         `json:"data_range"`
	Data       map[string]Bucket `json:"data"`
}

// Snapshot is a successfully refreshed reading together with when it was fetched.
type Snapshot struct {
	SiteID    string      `json:"site_id"`
	FetchedAt time.Time   `json:"fetched_at"` // always UTC
	Reading   SiteReading `json:"reading"`
}
