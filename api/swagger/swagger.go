package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "IndyMeet Session API",
        "description": "Team formation, acceptance and waitlist promotion for mentoring sessions",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Sessions", "description": "Session lookup"},
        {"name": "Formation", "description": "Team formation runs and reports"},
        {"name": "Acceptance", "description": "Participant accept/decline flow"},
        {"name": "Notifications", "description": "Result dispatch and reminders"},
        {"name": "Availability", "description": "Weekly availability submission and comparison"},
        {"name": "Waitlist", "description": "Promotion queue"}
    ],
    "paths": {
        "/sessions/{id}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Fetch a session by ID or slug",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/sessions/{id}/formation/run": {
            "post": {
                "tags": ["Formation"],
                "summary": "Run team formation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RunFormationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Results already dispatched"}
                }
            }
        },
        "/sessions/{id}/formation/report": {
            "get": {
                "tags": ["Formation"],
                "summary": "Latest formation report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/formation/export": {
            "get": {
                "tags": ["Formation"],
                "summary": "Export formation report as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/sessions/{id}/results/send": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Dispatch session results once",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/SendResultsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/results/reminders": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Queue acceptance reminders",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/deadline-sweep": {
            "post": {
                "tags": ["Acceptance"],
                "summary": "Expire overdue acceptance deadlines",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/availability/compare": {
            "get": {
                "tags": ["Availability"],
                "summary": "Compare participant availability",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "membership_ids", "in": "query", "type": "array", "items": {"type": "string"}},
                    {"name": "timezone_shift", "in": "query", "type": "number"},
                    {"name": "top_windows", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/availability": {
            "put": {
                "tags": ["Availability"],
                "summary": "Submit or revise the caller's weekly availability",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Application window closed"}
                }
            }
        },
        "/sessions/{id}/waitlist": {
            "get": {
                "tags": ["Waitlist"],
                "summary": "List the session waitlist",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/waitlist/promote": {
            "post": {
                "tags": ["Waitlist"],
                "summary": "Fill a vacancy from the waitlist",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PromoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/memberships/{id}/decision": {
            "post": {
                "tags": ["Acceptance"],
                "summary": "Record an accept or decline",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already answered"},
                    "412": {"description": "Acceptance deadline passed"}
                }
            }
        }
    },
    "definitions": {
        "RunFormationRequest": {
            "type": "object",
            "properties": {
                "djangonauts_per_team": {"type": "integer"},
                "min_djangonauts_per_team": {"type": "integer"}
            }
        },
        "SendResultsRequest": {
            "type": "object",
            "properties": {
                "deadline_days": {"type": "integer"}
            }
        },
        "DecisionRequest": {
            "type": "object",
            "properties": {
                "decision": {"type": "string", "enum": ["accepted", "declined"]}
            },
            "required": ["decision"]
        },
        "UpsertAvailabilityRequest": {
            "type": "object",
            "properties": {
                "slots": {"type": "array", "items": {"type": "number"}}
            },
            "required": ["slots"]
        },
        "PromoteRequest": {
            "type": "object",
            "properties": {
                "team_id": {"type": "string"},
                "role": {"type": "string", "enum": ["djangonaut", "navigator", "captain"]}
            },
            "required": ["team_id", "role"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
