package actions

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/relloyd/campaignpipe/helper"
	"github.com/relloyd/campaignpipe/logger"
	"github.com/relloyd/campaignpipe/pipeline"
)

const (
	urlContext4Runs = "/runs"
)

type WebServerConfig struct {
	Pipe *PipeConfig `errorTxt:"pipe config" mandatory:"yes"`
	Addr net.IP      `errorTxt:"address" mandatory:"no"`
	Port int         `errorTxt:"port" mandatory:"yes"`
}

// RunWebServer serves manual triggers and run status until a stop request or SIGINT/SIGTERM.
func RunWebServer(log logger.Logger, web *WebServerConfig) error {
	if web == nil {
		return errors.New("nil pointer to web server config supplied")
	}
	if err := helper.ValidateStructIsPopulated(web); err != nil {
		return err
	}
	if err := helper.ValidateStructIsPopulated(web.Pipe); err != nil {
		return err
	}
	if err := web.Pipe.Config.Validate(); err != nil {
		return err
	}
	launcher := NewRunLauncher(log, func() *pipeline.Pipeline {
		return NewMarketingPipeline(log, web.Pipe)
	})
	chanStopServer := make(chan string, 1)
	srv := &http.Server{
		Addr:         net.JoinHostPort(addrString(web.Addr), fmt.Sprint(web.Port)),
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      NewRouter(log, launcher, chanStopServer),
	}
	chanServeErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			chanServeErr <- err
		}
		close(chanServeErr)
	}()
	log.Info(fmt.Sprintf("Listening on http://%v", srv.Addr))
	return waitForServer(log, srv, launcher, chanStopServer, chanServeErr)
}

// NewRouter returns the routes served by the web server.
func NewRouter(log logger.Logger, launcher *RunLauncher, chanStopServer chan string) *mux.Router {
	r := mux.NewRouter()
	r.Path("/stop").Methods(http.MethodGet).HandlerFunc(GetHandlerStopServer(log, chanStopServer))
	r.Path("/health").Methods(http.MethodGet).HandlerFunc(GetHandlerHealth(log))
	r.Path(urlContext4Runs).Methods(http.MethodPost).HandlerFunc(GetHandlerRunLaunch(log, launcher))
	r.Path(urlContext4Runs).Methods(http.MethodGet).HandlerFunc(GetHandlerRunList(log, launcher.Registry()))
	r.Path(urlContext4Runs + "/{runId}").Methods(http.MethodGet).HandlerFunc(GetHandlerRunStatus(log, launcher.Registry()))
	return r
}

func waitForServer(log logger.Logger, srv *http.Server, launcher *RunLauncher, chanStopServer chan string, chanServeErr chan error) error {
	chanOS := make(chan os.Signal, 1)
	signal.Notify(chanOS, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(chanOS)
	select {
	case <-chanStopServer:
	case <-chanOS:
	case err, ok := <-chanServeErr:
		if ok {
			return errors.Wrap(err, "web server failed")
		}
	}
	log.Info("Shutting down web server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := launcher.Shutdown(ctx); err != nil {
		log.Warn("timeout waiting for the active run to stop: ", err)
	}
	return srv.Shutdown(ctx)
}

func addrString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}
