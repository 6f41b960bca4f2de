// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package api

import (
	_ "embed"

	"github.com/swaggo/swag"
)

// openAPIDoc is the REST contract served at /swagger/doc.json. Keep it in
// step with the routes registered in Setup.
//
//go:embed openapi.json
var openAPIDoc string

// SwaggerInfo is the registered API document.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Title:            "Assist Move API",
	InfoInstanceName: swag.Name,
	SwaggerTemplate:  openAPIDoc,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

//nolint:gochecknoinits // swag resolves documents from its global registry
func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
