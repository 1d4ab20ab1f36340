package campaign

// Raw CSV column names.
const (
	ColCampaignId      = "Campaign_ID"
	ColCompany         = "Company"
	ColCampaignType    = "Campaign_Type"
	ColTargetAudience  = "Target_Audience"
	ColDuration        = "Duration"
	ColChannelUsed     = "Channel_Used"
	ColConversionRate  = "Conversion_Rate"
	ColAcquisitionCost = "Acquisition_Cost"
	ColRoi             = "ROI"
	ColLocation        = "Location"
	ColLanguage        = "Language"
	ColClicks          = "Clicks"
	ColImpressions     = "Impressions"
	ColEngagementScore = "Engagement_Score"
	ColCustomerSegment = "Customer_Segment"
	ColDate            = "Date"
	ColConversions     = "Conversions"
	ColSpend           = "Spend"
	ColRevenue         = "Revenue"
	ColCtr             = "CTR"
	ColRoas            = "ROAS"
)

// RawCampaignRecord is one row of the raw dataset with every field held as text.
type RawCampaignRecord struct {
	CampaignId      string `csv:"Campaign_ID"`
	Company         string `csv:"Company"`
	CampaignType    string `csv:"Campaign_Type"`
	TargetAudience  string `csv:"Target_Audience"`
	Duration        string `csv:"Duration"`
	ChannelUsed     string `csv:"Channel_Used"`
	ConversionRate  string `csv:"Conversion_Rate"`
	AcquisitionCost string `csv:"Acquisition_Cost"`
	Roi             string `csv:"ROI"`
	Location        string `csv:"Location"`
	Language        string `csv:"Language"`
	Clicks          string `csv:"Clicks"`
	Impressions     string `csv:"Impressions"`
	EngagementScore string `csv:"Engagement_Score"`
	CustomerSegment string `csv:"Customer_Segment"`
	Date            string `csv:"Date"`
}

// CampaignRecord is a RawCampaignRecord after type coercion.
type CampaignRecord struct {
	CampaignId      string    `csv:"Campaign_ID" json:"campaignId"`
	Company         string    `csv:"Company" json:"company"`
	CampaignType    string    `csv:"Campaign_Type" json:"campaignType"`
	TargetAudience  string    `csv:"Target_Audience" json:"targetAudience"`
	Duration        NullFloat `csv:"Duration" json:"duration"`
	ChannelUsed     string    `csv:"Channel_Used" json:"channelUsed"`
	ConversionRate  NullFloat `csv:"Conversion_Rate" json:"conversionRate"`
	AcquisitionCost NullFloat `csv:"Acquisition_Cost" json:"acquisitionCost"`
	Roi             NullFloat `csv:"ROI" json:"roi"`
	Location        string    `csv:"Location" json:"location"`
	Language        string    `csv:"Language" json:"language"`
	Clicks          NullInt   `csv:"Clicks" json:"clicks"`
	Impressions     NullInt   `csv:"Impressions" json:"impressions"`
	EngagementScore NullFloat `csv:"Engagement_Score" json:"engagementScore"`
	CustomerSegment string    `csv:"Customer_Segment" json:"customerSegment"`
	Date            NullDate  `csv:"Date" json:"date"`
}

// DerivedMetrics are computed per record by Derive.
type DerivedMetrics struct {
	Conversions NullInt   `csv:"Conversions" json:"conversions"`
	Spend       NullFloat `csv:"Spend" json:"spend"`
	Revenue     NullFloat `csv:"Revenue" json:"revenue"`
	Ctr         NullFloat `csv:"CTR" json:"ctr"`
	Roas        NullFloat `csv:"ROAS" json:"roas"`
}

// ProcessedRecord is one row of the processed dataset.
type ProcessedRecord struct {
	CampaignRecord
	DerivedMetrics
}

// ProcessedText is one row of the processed dataset with every field held as text.
type ProcessedText struct {
	RawCampaignRecord
	Conversions string `csv:"Conversions"`
	Spend       string `csv:"Spend"`
	Revenue     string `csv:"Revenue"`
	Ctr         string `csv:"CTR"`
	Roas        string `csv:"ROAS"`
}

// coercer collects a *TypeCoercionError for each value it sets to null.
type coercer struct {
	errs []error
}

func (c *coercer) float(col string, raw string, parse func(string) (NullFloat, error)) NullFloat {
	v, err := parse(raw)
	if err != nil {
		c.errs = append(c.errs, &TypeCoercionError{Column: col, Value: raw, Err: err})
		return NullFloat{}
	}
	return v
}

func (c *coercer) int(col string, raw string) NullInt {
	v, err := ParseInt(raw)
	if err != nil {
		c.errs = append(c.errs, &TypeCoercionError{Column: col, Value: raw, Err: err})
		return NullInt{}
	}
	return v
}

func (c *coercer) date(col string, raw string) NullDate {
	if raw == "" {
		return NullDate{}
	}
	v, err := ParseDate(raw)
	if err != nil {
		c.errs = append(c.errs, &TypeCoercionError{Column: col, Value: raw, Err: err})
		return NullDate{}
	}
	return v
}

// Coerce converts the text fields of r into typed values.
// Values that cannot be converted become null and are reported via the returned errors,
// which are of type *TypeCoercionError. Coercion never stops part way through a record.
func (r RawCampaignRecord) Coerce() (CampaignRecord, []error) {
	c := &coercer{}
	rec := r.coerce(c)
	return rec, c.errs
}

func (r RawCampaignRecord) coerce(c *coercer) CampaignRecord {
	return CampaignRecord{
		CampaignId:      r.CampaignId,
		Company:         r.Company,
		CampaignType:    r.CampaignType,
		TargetAudience:  r.TargetAudience,
		Duration:        c.float(ColDuration, r.Duration, ParseDays),
		ChannelUsed:     r.ChannelUsed,
		ConversionRate:  c.float(ColConversionRate, r.ConversionRate, ParseFloat),
		AcquisitionCost: c.float(ColAcquisitionCost, r.AcquisitionCost, ParseCurrency),
		Roi:             c.float(ColRoi, r.Roi, ParseFloat),
		Location:        r.Location,
		Language:        r.Language,
		Clicks:          c.int(ColClicks, r.Clicks),
		Impressions:     c.int(ColImpressions, r.Impressions),
		EngagementScore: c.float(ColEngagementScore, r.EngagementScore, ParseFloat),
		CustomerSegment: r.CustomerSegment,
		Date:            c.date(ColDate, r.Date),
	}
}

// Coerce converts p into a ProcessedRecord the same way as RawCampaignRecord.Coerce.
// The derived metrics are taken as written, not derived again.
func (p ProcessedText) Coerce() (ProcessedRecord, []error) {
	c := &coercer{}
	rec := ProcessedRecord{
		CampaignRecord: p.RawCampaignRecord.coerce(c),
		DerivedMetrics: DerivedMetrics{
			Conversions: c.int(ColConversions, p.Conversions),
			Spend:       c.float(ColSpend, p.Spend, ParseFloat),
			Revenue:     c.float(ColRevenue, p.Revenue, ParseFloat),
			Ctr:         c.float(ColCtr, p.Ctr, ParseFloat),
			Roas:        c.float(ColRoas, p.Roas, ParseFloat),
		},
	}
	return rec, c.errs
}
