package actions_test

import (
	"bytes"
	"context"
	"database/sql"
	"io/ioutil"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/campaignpipe/actions"
	"github.com/relloyd/campaignpipe/config"
	"github.com/relloyd/campaignpipe/constants"
	"github.com/relloyd/campaignpipe/rdbms"
	"github.com/relloyd/campaignpipe/rdbms/shared"
)

var _ = Describe("Query", func() {
	var (
		dir     string
		factory shared.ConnectionFactory
	)

	BeforeEach(func() {
		var err error
		dir, err = ioutil.TempDir("", "campaignpipe-query")
		Expect(err).ToNot(HaveOccurred())
		path := filepath.Join(dir, "q.db")
		db, err := sql.Open("sqlite3", path)
		Expect(err).ToNot(HaveOccurred())
		defer db.Close()
		_, err = db.Exec(`create table kpi (company text, clicks integer, ctr real);
insert into kpi values ('Innovate Industries', 1000, 0.05), ('NexGen Systems', 100, null);`)
		Expect(err).ToNot(HaveOccurred())
		factory = rdbms.NewConnectionFactory(newDiscardLogger(), shared.DBConnections{
			"local": {Type: constants.ConnectionTypeSqlite, LogicalName: "local", Data: map[string]string{"path": path}},
		})
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	It("writes rows as CSV with a header", func() {
		out := &bytes.Buffer{}
		err := actions.RunQuery(context.Background(), newDiscardLogger(), &actions.QueryConfig{
			Factory:     factory,
			Connection:  "local",
			Query:       "select company, clicks, ctr from kpi order by company",
			PrintHeader: true,
		}, out)
		Expect(err).ToNot(HaveOccurred())
		Expect(out.String()).To(Equal("company,clicks,ctr\nInnovate Industries,1000,0.05\nNexGen Systems,100,\n"))
	})

	It("prints the query on a dry run", func() {
		out := &bytes.Buffer{}
		err := actions.RunQuery(context.Background(), newDiscardLogger(), &actions.QueryConfig{
			Connection: "local",
			Query:      "select 1",
			DryRun:     true,
		}, out)
		Expect(err).ToNot(HaveOccurred())
		Expect(out.String()).To(Equal("select 1\n"))
	})

	It("fails for an unknown connection", func() {
		err := actions.RunQuery(context.Background(), newDiscardLogger(), &actions.QueryConfig{
			Factory:    factory,
			Connection: "missing",
			Query:      "select 1",
		}, &bytes.Buffer{})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Config show", func() {
	It("redacts passwords", func() {
		cfg := config.NewConfig()
		out := &bytes.Buffer{}
		Expect(actions.RunConfigShow(cfg, out, "yaml")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("password: xxxxx"))
		Expect(out.String()).ToNot(ContainSubstring(constants.PostgresPasswordDefault))
		Expect(actions.RunConfigShow(cfg, out, "xml")).ToNot(Succeed())
	})
})
