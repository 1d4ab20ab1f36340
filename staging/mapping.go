package staging

import (
	om "github.com/cevaris/ordered_map"
	"github.com/pkg/errors"
	"github.com/relloyd/campaignpipe/campaign"
	"github.com/relloyd/campaignpipe/helper"
)

// columnMapping is the ordered mapping of processed dataset column to staging table column.
var columnMapping = [][2]string{
	{campaign.ColCampaignId, "campaign_id"},
	{campaign.ColCompany, "company"},
	{campaign.ColCampaignType, "campaign_type"},
	{campaign.ColTargetAudience, "target_audience"},
	{campaign.ColDuration, "duration_days"},
	{campaign.ColChannelUsed, "channel_used"},
	{campaign.ColConversionRate, "conversion_rate"},
	{campaign.ColAcquisitionCost, "acquisition_cost"},
	{campaign.ColRoi, "roi_multiplier"},
	{campaign.ColLocation, "location"},
	{campaign.ColLanguage, "language"},
	{campaign.ColClicks, "clicks"},
	{campaign.ColImpressions, "impressions"},
	{campaign.ColEngagementScore, "engagement_score"},
	{campaign.ColCustomerSegment, "customer_segment"},
	{campaign.ColDate, "campaign_date"},
	{campaign.ColConversions, "conversions"},
	{campaign.ColSpend, "spend"},
	{campaign.ColRevenue, "revenue"},
	{campaign.ColCtr, "ctr"},
	{campaign.ColRoas, "roas"},
}

// ColumnMapping returns a new ordered map of processed column name to staging column name.
func ColumnMapping() *om.OrderedMap {
	m := om.NewOrderedMap()
	for _, v := range columnMapping {
		m.Set(v[0], v[1])
	}
	return m
}

type valueGetter func(r *campaign.ProcessedRecord) interface{}

// fieldGetters returns the bind value of each processed column.
// Empty text is loaded as NULL.
var fieldGetters = map[string]valueGetter{
	campaign.ColCampaignId:      func(r *campaign.ProcessedRecord) interface{} { return nullString(r.CampaignId) },
	campaign.ColCompany:         func(r *campaign.ProcessedRecord) interface{} { return nullString(r.Company) },
	campaign.ColCampaignType:    func(r *campaign.ProcessedRecord) interface{} { return nullString(r.CampaignType) },
	campaign.ColTargetAudience:  func(r *campaign.ProcessedRecord) interface{} { return nullString(r.TargetAudience) },
	campaign.ColDuration:        func(r *campaign.ProcessedRecord) interface{} { return r.Duration },
	campaign.ColChannelUsed:     func(r *campaign.ProcessedRecord) interface{} { return nullString(r.ChannelUsed) },
	campaign.ColConversionRate:  func(r *campaign.ProcessedRecord) interface{} { return r.ConversionRate },
	campaign.ColAcquisitionCost: func(r *campaign.ProcessedRecord) interface{} { return r.AcquisitionCost },
	campaign.ColRoi:             func(r *campaign.ProcessedRecord) interface{} { return r.Roi },
	campaign.ColLocation:        func(r *campaign.ProcessedRecord) interface{} { return nullString(r.Location) },
	campaign.ColLanguage:        func(r *campaign.ProcessedRecord) interface{} { return nullString(r.Language) },
	campaign.ColClicks:          func(r *campaign.ProcessedRecord) interface{} { return r.Clicks },
	campaign.ColImpressions:     func(r *campaign.ProcessedRecord) interface{} { return r.Impressions },
	campaign.ColEngagementScore: func(r *campaign.ProcessedRecord) interface{} { return r.EngagementScore },
	campaign.ColCustomerSegment: func(r *campaign.ProcessedRecord) interface{} { return nullString(r.CustomerSegment) },
	campaign.ColDate:            func(r *campaign.ProcessedRecord) interface{} { return r.Date },
	campaign.ColConversions:     func(r *campaign.ProcessedRecord) interface{} { return r.Conversions },
	campaign.ColSpend:           func(r *campaign.ProcessedRecord) interface{} { return r.Spend },
	campaign.ColRevenue:         func(r *campaign.ProcessedRecord) interface{} { return r.Revenue },
	campaign.ColCtr:             func(r *campaign.ProcessedRecord) interface{} { return r.Ctr },
	campaign.ColRoas:            func(r *campaign.ProcessedRecord) interface{} { return r.Roas },
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// getValueGetters returns a getter per key of mapping, in order.
func getValueGetters(mapping *om.OrderedMap) ([]valueGetter, error) {
	cols, err := helper.OrderedMapKeysToStringSlice(mapping)
	if err != nil {
		return nil, err
	}
	getters := make([]valueGetter, 0, len(cols))
	for _, col := range cols {
		g, found := fieldGetters[col]
		if !found {
			return nil, errors.Errorf("no processed column %q to map to a staging column", col)
		}
		getters = append(getters, g)
	}
	return getters, nil
}
