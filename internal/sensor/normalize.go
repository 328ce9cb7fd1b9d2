package sensor

import "errors"

// ErrMissingLatestBucket is returned when data_range.maximum_date does not
// name a bucket present in the response data.
var ErrMissingLatestBucket = errors.New("latest data bucket missing from upstream response")

// Normalize reduces the most recent bucket of raw to a SiteReading, taking the
// median of every channel.
func Normalize(raw RawSensorResponse) (SiteReading, error) {
	bucket, ok := raw.Data[raw.DataRange.MaximumDate]
	if !ok {
		return SiteReading{}, ErrMissingLatestBucket
	}

	return SiteReading{
		Temperature:         median(bucket.Temperature),
		Humidity:            median(bucket.Humidity),
		CO2:                 median(bucket.CO2),
		AmbientLight:        median(bucket.AmbientLight),
		TVOC:                median(bucket.TVOC),
		ParticulateMatter:   median(bucket.ParticulateMatter),
		ParticulateMatter25: median(bucket.ParticulateMatter25),
		ParticulateMatter10: median(bucket.ParticulateMatter10),
	}, nil
}

func median(s *Statistic) float64 {
	if s == nil || s.Median == nil {
		return MissingValue
	}
	return *s.Median
}
