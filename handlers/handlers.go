// Package handlers exposes the HTTP surface of the suite: session
// state, sign-in, organization settings and membership management,
// project listings with amount masking, and health probes. Handlers
// stay thin; permission checks live in the middleware chain and the
// services underneath.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hashim1213/soluly-business-suite-sub004/utils"
)

// errEmptyBody reports a request without a JSON body
var errEmptyBody = errors.New("request body is empty")

// decodeJSON decodes a JSON request body, rejecting unknown fields
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// decodeValid decodes a JSON request body and runs the struct's
// validate tags over it
func decodeValid(r *http.Request, dst interface{}) error {
	if err := decodeJSON(r, dst); err != nil {
		return err
	}
	return utils.ValidateStruct(dst)
}

// writeDecodeError maps a decode or validation failure onto a 400,
// carrying per-field messages when validation produced them
func writeDecodeError(w http.ResponseWriter, err error) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for name, msg := range fields {
			details[name] = msg
		}
		_ = utils.WriteBadRequest(w, err.Error(), details)
		return
	}
	_ = utils.WriteBadRequest(w, "Invalid request body", nil)
}
