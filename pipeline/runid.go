package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/relloyd/campaignpipe/constants"
)

// NewRunId returns the run id for a manual trigger at triggerTime together with a UUID that is
// derived from the pipeline name and run id, so the same inputs always give the same values.
func NewRunId(pipelineName string, triggerTime time.Time) (string, uuid.UUID) {
	runId := fmt.Sprintf("%v__%v", constants.RunIdPrefixManual, triggerTime.UTC().Format(constants.TimeFormatYearSeconds))
	return runId, uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%v://%v/%v", constants.ServiceName, pipelineName, runId)))
}
