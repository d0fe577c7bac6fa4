package jobs

import (
	"fmt"
	"time"

	"go.jetify.com/typeid/v2"
)

// jobIDPrefix is the TypeID prefix for job identifiers.
const jobIDPrefix = "job"

// NewID returns a K-sortable job identifier such as
// "job_01h2xcejqtf2nbrexx3vqjhp41".
func NewID() string {
	tid, err := typeid.Generate(jobIDPrefix)
	if err != nil {
		return fmt.Sprintf("%s_%d", jobIDPrefix, time.Now().UnixNano())
	}
	return tid.String()
}
