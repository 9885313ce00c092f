package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/featherlift/featherlift-go/internal/port"
	"github.com/featherlift/featherlift-go/internal/provision"
)

func ProvisionStackHandler(svc port.StackProvisioner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stack, err := svc.EnsureStack(r.Context())
		if err != nil {
			if errors.Is(err, provision.ErrInvalidBucketName) {
				WriteError(w, http.StatusBadRequest, "the configured bucket name is invalid", err)
				return
			}
			WriteError(w, http.StatusInternalServerError, "could not provision the AWS stack", err)
			return
		}

		RespondJSON(w, http.StatusOK, stack)
		log.Printf("✅  AWS stack ready: bucket %q, queue %q", stack.BucketName, stack.QueueURL)
	}
}
