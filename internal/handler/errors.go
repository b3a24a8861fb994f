package handler

import (
	"errors"
	"log"
	"net/http"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/gateway"
	"prochain-bridge/internal/remote"
	"prochain-bridge/internal/service"
	"prochain-bridge/pkg/response"
)

// respond writes data with status, or the response matching err. A queued
// write answers 202 and still carries the optimistic value.
func respond(w http.ResponseWriter, status int, data interface{}, err error) {
	if err == nil {
		response.JSON(w, status, data)
		return
	}

	var queued *gateway.QueuedError
	if errors.As(err, &queued) {
		resp := domain.QueuedResponse{
			Queued:  true,
			WriteID: queued.WriteID,
			Action:  queued.Action,
		}
		if data != nil {
			resp.Result = data
		}
		response.Accepted(w, resp)
		return
	}

	writeError(w, err)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		response.BadRequest(w, err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		response.Unauthorized(w, "No active session, sign in again")
	case remote.KindOf(err) == remote.Application:
		status := remote.StatusOf(err)
		switch status {
		case http.StatusNotFound:
			response.NotFound(w, "Not found")
		case http.StatusForbidden:
			response.Forbidden(w, err.Error())
		case http.StatusConflict:
			response.Conflict(w, err.Error())
		default:
			if status >= 400 && status < 500 {
				response.Error(w, status, err.Error())
				return
			}
			response.BadGateway(w, "Backend rejected the request")
		}
	case remote.IsTransport(err) || isRemote(err):
		response.BadGateway(w, "Backend unavailable")
	default:
		log.Printf("[handler] unexpected error: %v", err)
		response.InternalError(w, "Internal error")
	}
}

func isRemote(err error) bool {
	var re *remote.Error
	return errors.As(err, &re)
}
