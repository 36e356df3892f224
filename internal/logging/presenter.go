// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"

	rqerrors "remotesql/cli/internal/errors"
)

// hints suggest a next step for the error kinds a user can act on.
var hints = map[rqerrors.Kind]string{
	rqerrors.SetupFailed:     "check the address and credentials, and that the service is running",
	rqerrors.NoAnswer:        "check that a responder is running and the query is valid on its database",
	rqerrors.TransportFailed: "the relay connection was interrupted; try again",
}

// PresentError formats an error for user display with masking, followed by a
// hint when the error kind has one.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: %s", context, Mask(err.Error()))
	if hint, ok := hints[rqerrors.KindOf(err)]; ok {
		msg += "\n   " + hint
	}
	return msg
}
