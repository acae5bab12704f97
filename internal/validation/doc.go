// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

/*
Package validation checks API request bodies and path parameters with
go-playground/validator.

A single validator instance is shared so struct metadata is cached once.
Field names in errors are taken from json tags. The custom "resourceid" tag
accepts gateway ids and rejects anything that could alter a REST path.

	type triggerRequest struct {
	    Type string `json:"type" validate:"required,resourceid"`
	}

	if err := validation.Struct(&req); err != nil {
	    // err is *validation.Error
	}
*/
package validation
