package actions_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/campaignpipe/actions"
	"github.com/relloyd/campaignpipe/campaign"
	"github.com/relloyd/campaignpipe/config"
	"github.com/relloyd/campaignpipe/constants"
	"github.com/relloyd/campaignpipe/pipeline"
	"github.com/relloyd/campaignpipe/rdbms/shared"
	"github.com/sirupsen/logrus"
)

const rawCsv = `Campaign_ID,Company,Campaign_Type,Target_Audience,Duration,Channel_Used,Conversion_Rate,Acquisition_Cost,ROI,Location,Language,Clicks,Impressions,Engagement_Score,Customer_Segment,Date
1,Innovate Industries,Email,Men 18-24,30 days,Google Ads,0.05,$10.00,5,Chicago,Spanish,1000,20000,6,Health & Wellness,2021-01-01
2,NexGen Systems,Social Media,Women 35-44,60 days,Instagram,0.1,"$1,234.50",2,New York,English,100,0,7,Fashionistas,2021-01-02
3,Alpha Innovations,Display,All Ages,15 days,YouTube,0.07,$500.00,3,Miami,French,abc,1000,2,Tech Enthusiasts,2021-01-03
`

const createStagingTable = `create table stg_campaign_performance (
	campaign_id text,
	company text,
	campaign_type text,
	target_audience text,
	duration_days real,
	channel_used text,
	conversion_rate real,
	acquisition_cost real,
	roi_multiplier real,
	location text,
	language text,
	clicks integer,
	impressions integer,
	engagement_score real,
	customer_segment text,
	campaign_date date,
	conversions integer,
	spend real,
	revenue real,
	ctr real,
	roas real
)`

const (
	scriptDimensions = `create table if not exists dim_company (company text primary key);
insert or ignore into dim_company select distinct company from ${staging_table};`
	scriptFact = `create table if not exists fact_campaign (campaign_id text, company text, spend real, run_id text);
delete from fact_campaign;
insert into fact_campaign select campaign_id, company, spend, '${run_id}' from ${staging_table};`
	scriptKpis = `drop view if exists v_company_spend;
create view v_company_spend as select company, sum(spend) as total_spend from fact_campaign group by company;`
)

func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(ioutil.Discard)
	return l
}

func writeFile(path string, content string) {
	Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
	Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
}

// newTestConfig returns a config that uses one SQLite file for staging and the warehouse.
func newTestConfig(dir string) (*config.Config, *sql.DB) {
	dbPath := filepath.Join(dir, "analytics.db")
	db, err := sql.Open("sqlite3", dbPath)
	Expect(err).ToNot(HaveOccurred())
	_, err = db.Exec(createStagingTable)
	Expect(err).ToNot(HaveOccurred())
	cfg := config.NewConfig()
	cfg.Transform.RawPath = filepath.Join(dir, "raw", "marketing_campaign_dataset.csv")
	cfg.Transform.ProcessedPath = filepath.Join(dir, "processed", "marketing_cleaned.csv")
	cfg.Warehouse.LoadDimensionsScript = filepath.Join(dir, "sql", "02_load_dimensions.sql")
	cfg.Warehouse.LoadFactScript = filepath.Join(dir, "sql", "03_load_fact.sql")
	cfg.Warehouse.KpiViewsScript = filepath.Join(dir, "sql", "04_kpi_views.sql")
	cfg.Retry.DelaySecs = 120
	cfg.Connections = shared.DBConnections{}
	for _, name := range []string{cfg.Staging.Connection, cfg.Warehouse.Connection} {
		cfg.Connections[name] = shared.ConnectionDetails{
			Type:        constants.ConnectionTypeSqlite,
			LogicalName: name,
			Data:        map[string]string{shared.DefaultConnectionKeyNames.Path: dbPath},
		}
	}
	writeFile(cfg.Warehouse.LoadDimensionsScript, scriptDimensions)
	writeFile(cfg.Warehouse.LoadFactScript, scriptFact)
	writeFile(cfg.Warehouse.KpiViewsScript, scriptKpis)
	return cfg, db
}

var _ = Describe("Marketing pipeline", func() {
	var (
		dir    string
		cfg    *config.Config
		db     *sql.DB
		delays []time.Duration
		pc     *actions.PipeConfig
	)

	BeforeEach(func() {
		var err error
		dir, err = ioutil.TempDir("", "campaignpipe-actions")
		Expect(err).ToNot(HaveOccurred())
		cfg, db = newTestConfig(dir)
		delays = nil
		pc = &actions.PipeConfig{
			Config: cfg,
			Sleeper: pipeline.SleeperFunc(func(ctx context.Context, d time.Duration) error {
				delays = append(delays, d)
				return nil
			}),
		}
	})

	AfterEach(func() {
		_ = db.Close()
		_ = os.RemoveAll(dir)
	})

	It("registers the tasks in order", func() {
		order, err := actions.NewMarketingPipeline(newDiscardLogger(), pc).TopologicalOrder()
		Expect(err).ToNot(HaveOccurred())
		Expect(order).To(Equal([]string{
			constants.TaskTransform,
			constants.TaskLoadStaging,
			constants.TaskLoadDimensions,
			constants.TaskLoadFact,
			constants.TaskRefreshKpis,
		}))
	})

	It("runs every task from the raw file to the KPI views", func() {
		writeFile(cfg.Transform.RawPath, rawCsv)
		out := &bytes.Buffer{}
		report, err := actions.RunPipeline(context.Background(), newDiscardLogger(), pc, out, pipeline.OutputFormatJson)
		Expect(err).ToNot(HaveOccurred())
		Expect(report.State).To(Equal(pipeline.StateSucceeded))
		Expect(report.Tasks).To(HaveLen(5))
		for _, t := range report.Tasks {
			Expect(t.State).To(Equal(pipeline.StateSucceeded), t.Name)
			Expect(t.Attempts).To(Equal(1))
		}
		Expect(delays).To(BeEmpty())

		var decoded map[string]interface{}
		Expect(json.Unmarshal(out.Bytes(), &decoded)).To(Succeed())
		Expect(decoded["state"]).To(Equal("SUCCEEDED"))

		var rows, runIds int
		Expect(db.QueryRow("select count(*), count(distinct run_id) from fact_campaign where run_id = ?", report.RunId).Scan(&rows, &runIds)).To(Succeed())
		Expect(rows).To(Equal(3))
		Expect(runIds).To(Equal(1))
		var spend float64
		Expect(db.QueryRow("select total_spend from v_company_spend where company = 'Innovate Industries'").Scan(&spend)).To(Succeed())
		Expect(spend).To(BeNumerically("~", 500.0, 1e-9))
	})

	It("gives the same staging contents when run twice", func() {
		writeFile(cfg.Transform.RawPath, rawCsv)
		_, err := actions.RunLoadStaging(context.Background(), newDiscardLogger(), pc)
		var missing *campaign.MissingInputError
		Expect(errors.As(err, &missing)).To(BeTrue())

		_, err = actions.RunTransform(context.Background(), newDiscardLogger(), pc)
		Expect(err).ToNot(HaveOccurred())
		for i := 0; i < 2; i++ {
			loaded, err := actions.RunLoadStaging(context.Background(), newDiscardLogger(), pc)
			Expect(err).ToNot(HaveOccurred())
			Expect(loaded).To(Equal(3))
			var n int
			Expect(db.QueryRow("select count(*) from stg_campaign_performance").Scan(&n)).To(Succeed())
			Expect(n).To(Equal(3))
		}
	})

	It("fails the run and skips the rest when the raw file is missing", func() {
		out := &bytes.Buffer{}
		report, err := actions.RunPipeline(context.Background(), newDiscardLogger(), pc, out, pipeline.OutputFormatYaml)
		Expect(err).To(HaveOccurred())
		var missing *campaign.MissingInputError
		Expect(errors.As(err, &missing)).To(BeTrue())
		Expect(missing.Path).To(Equal(cfg.Transform.RawPath))

		Expect(report.State).To(Equal(pipeline.StateFailed))
		Expect(report.FailedTask).To(Equal(constants.TaskTransform))
		Expect(delays).To(Equal([]time.Duration{2 * time.Minute, 2 * time.Minute}))
		transform, _ := report.Task(constants.TaskTransform)
		Expect(transform.Attempts).To(Equal(3))
		for _, name := range []string{constants.TaskLoadStaging, constants.TaskLoadDimensions, constants.TaskLoadFact, constants.TaskRefreshKpis} {
			t, found := report.Task(name)
			Expect(found).To(BeTrue())
			Expect(t.State).To(Equal(pipeline.StateSkipped), name)
		}
		Expect(out.String()).To(ContainSubstring("state: FAILED"))
	})

	It("substitutes the staging table and run id over configured params", func() {
		cfg.Warehouse.Params = map[string]string{"schema": "analytics", constants.SqlParamStagingTable: "ignored"}
		params := actions.ScriptParams(cfg, "manual__20240101T000000")
		Expect(params).To(Equal(map[string]string{
			"schema":                       "analytics",
			constants.SqlParamStagingTable: constants.StagingTableDefault,
			constants.SqlParamRunId:        "manual__20240101T000000",
		}))
	})

	It("runs a single script", func() {
		err := actions.RunExecSql(context.Background(), newDiscardLogger(), &actions.ExecSqlConfig{
			Config:     cfg,
			Connection: cfg.Warehouse.Connection,
			ScriptPath: cfg.Warehouse.LoadDimensionsScript,
		})
		Expect(err).ToNot(HaveOccurred())
		var n int
		Expect(db.QueryRow("select count(*) from dim_company").Scan(&n)).To(Succeed())
		Expect(n).To(Equal(0))
	})
})
