package campaign

import (
	"math"
)

// Derive computes the DerivedMetrics for c.
// The metrics are computed in a fixed order since each depends on the previous:
//   conversions = round(clicks * conversion_rate)  (half to even)
//   spend       = conversions * acquisition_cost
//   revenue     = spend * roi
//   ctr         = clicks / impressions             (null when impressions == 0)
//   roas        = revenue / spend                  (null when spend == 0)
// A metric is null whenever one of its inputs is null.
// Conversions outside the int64 range are null.
func Derive(c CampaignRecord) (m DerivedMetrics) {
	if c.Clicks.Valid && c.ConversionRate.Valid {
		v := math.RoundToEven(float64(c.Clicks.Int64) * c.ConversionRate.Float64)
		if math.Abs(v) < math.MaxInt64 {
			m.Conversions = IntOf(int64(v))
		}
	}
	if m.Conversions.Valid && c.AcquisitionCost.Valid {
		m.Spend = FloatOf(float64(m.Conversions.Int64) * c.AcquisitionCost.Float64)
	}
	if m.Spend.Valid && c.Roi.Valid {
		m.Revenue = FloatOf(m.Spend.Float64 * c.Roi.Float64)
	}
	if c.Clicks.Valid && c.Impressions.Valid && c.Impressions.Int64 != 0 {
		m.Ctr = FloatOf(float64(c.Clicks.Int64) / float64(c.Impressions.Int64))
	}
	if m.Revenue.Valid && m.Spend.Valid && m.Spend.Float64 != 0 {
		m.Roas = FloatOf(m.Revenue.Float64 / m.Spend.Float64)
	}
	return m
}

// Process coerces r and derives its metrics.
func Process(r RawCampaignRecord) (ProcessedRecord, []error) {
	c, errs := r.Coerce()
	return ProcessedRecord{CampaignRecord: c, DerivedMetrics: Derive(c)}, errs
}
