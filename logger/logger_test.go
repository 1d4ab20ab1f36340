package logger_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/campaignpipe/logger"
)

var _ = Describe("Logger", func() {
	var (
		l         *logger.LoggerImpl
		logOutput *bytes.Buffer
	)

	decode := func() map[string]interface{} {
		var actual map[string]interface{}
		Expect(json.Unmarshal(logOutput.Bytes(), &actual)).To(Succeed())
		return actual
	}

	BeforeEach(func() {
		l = logger.NewLogger("test-service", "debug", true)
		logger.SetFormat(logger.FormatJson)
		logOutput = bytes.NewBufferString("")
		l.SetOutput(logOutput)
	})

	It("Should have `test-service` as service name", func() {
		l.Info("Testing")
		Expect(decode()["service"]).To(Equal("test-service"))
	})

	It("Should have info as log level", func() {
		l.Info("Testing")
		Expect(decode()["level"]).To(Equal("info"))
	})

	It("Should have warning as log level", func() {
		l.Warn("Testing")
		Expect(decode()["level"]).To(Equal("warning"))
	})

	It("Should include a stack trace on errors when stack dumps are enabled", func() {
		l.Error("Testing")
		actual := decode()
		Expect(actual["level"]).To(Equal("error"))
		Expect(actual["stackTrace"]).ToNot(BeNil())
	})

	It("Should have `Testing` as msg", func() {
		l.Info("Testing")
		Expect(decode()["msg"]).To(Equal("Testing"))
	})

	It("Should add structured fields", func() {
		logger.WithFields(l, map[string]interface{}{"task": "transform", "attempt": 2}).Info("Testing")
		actual := decode()
		Expect(actual["task"]).To(Equal("transform"))
		Expect(actual["attempt"]).To(BeNumerically("==", 2))
		Expect(actual["service"]).To(Equal("test-service"))
	})
})
