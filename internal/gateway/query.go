// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package gateway

import (
	"net/url"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// QuerySpec describes one GraphQL request.
type QuerySpec struct {
	// Query is the GraphQL document text.
	Query string

	// Variables are sent as the "variables" member. Nil is sent as null.
	Variables map[string]any

	// OperationName selects an operation in multi-operation documents.
	OperationName string

	// Headers are added to the request. The Authorization header is always
	// derived from the token and cannot be overridden here.
	Headers map[string]string
}

// Predefined documents used by the exporter endpoints.
const (
	CamerasQuery = `query GetCameras {
  cameras {
    id
    name
    communicationStatus {
      started
      failing
    }
    videoStreams {
      id
      name
      videoCodec
      streamAvailability {
        rtsp
      }
    }
  }
}`

	AboutQuery = `query about {
  about {
    videoManagementSystems {
      id
      url
      idp
      version
      vendorID
      slc
    }
  }
}`
)

// RESTPrefix is the path under which the gateway serves REST resources.
const RESTPrefix = "/api/rest/v1/"

// RESTRequest describes one REST call against {gateway}/api/rest/v1/<resource>[/<id>].
type RESTRequest struct {
	Method   string
	Resource string
	ID       string
	Query    url.Values
	// Body is JSON encoded when non-nil.
	Body    any
	Headers map[string]string
}

// Path returns the request path including the REST prefix.
func (r RESTRequest) Path() string {
	p := RESTPrefix + strings.Trim(r.Resource, "/")
	if r.ID != "" {
		p += "/" + url.PathEscape(r.ID)
	}
	return p
}

// OperationName returns the name of the first operation in query, or ""
// when the document cannot be parsed or the operation is anonymous. It is
// used for log fields only.
func OperationName(query string) string {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil || doc == nil || len(doc.Operations) == 0 {
		return ""
	}
	return doc.Operations[0].Name
}
