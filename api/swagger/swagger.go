package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SnackPDF Processing API",
        "description": "PDF merge and split pipeline with usage quotas",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "PDF", "description": "Merge and split processing"},
        {"name": "Users", "description": "Quota and usage statistics"},
        {"name": "Status", "description": "Service status"},
        {"name": "Files", "description": "Processed artifact downloads"}
    ],
    "paths": {
        "/pdf/merge": {
            "post": {
                "tags": ["PDF"],
                "summary": "Merge uploaded PDFs into one document",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "files", "in": "formData", "type": "file", "required": true, "description": "Two or more PDF files"},
                    {"name": "platform", "in": "formData", "type": "string", "enum": ["snackpdf", "revisepdf"]},
                    {"name": "options", "in": "formData", "type": "string", "description": "JSON object of merge options"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/MergeResponse"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "429": {"description": "Quota exhausted", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "500": {"description": "Processing failed", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/pdf/split": {
            "post": {
                "tags": ["PDF"],
                "summary": "Split a PDF into one or more documents",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true},
                    {"name": "platform", "in": "formData", "type": "string", "enum": ["snackpdf", "revisepdf"]},
                    {"name": "splitMode", "in": "formData", "type": "string", "enum": ["all", "range", "interval"], "default": "all"},
                    {"name": "pageRanges", "in": "formData", "type": "string", "description": "Comma-separated pages and spans, e.g. 1-3,5"},
                    {"name": "intervalPages", "in": "formData", "type": "integer", "description": "Pages per piece for interval mode"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SplitResponse"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "429": {"description": "Quota exhausted", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "500": {"description": "Processing failed", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/pdf/jobs/{jobId}": {
            "get": {
                "tags": ["PDF"],
                "summary": "Fetch one of the caller's processing jobs",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "jobId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/JobResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/pdf/status": {
            "get": {
                "tags": ["Status"],
                "summary": "Processing service status and aggregate counters",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/users/usage": {
            "get": {
                "tags": ["Users"],
                "summary": "Current quota position and recent tool activity",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/UsageResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/files/{name}": {
            "get": {
                "tags": ["Files"],
                "summary": "Download a processed artifact (local storage backend only)",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "name", "in": "path", "type": "string", "required": true},
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File content"},
                    "401": {"description": "Invalid token", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "definitions": {
        "MergeResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "job_id": {"type": "string"},
                "result": {
                    "type": "object",
                    "properties": {
                        "filename": {"type": "string"},
                        "size": {"type": "string"},
                        "download_url": {"type": "string"},
                        "page_count": {"type": "integer"}
                    }
                }
            }
        },
        "SplitResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "job_id": {"type": "string"},
                "result": {
                    "type": "object",
                    "properties": {
                        "files": {"type": "array", "items": {"$ref": "#/definitions/OutputFile"}},
                        "total_files": {"type": "integer"},
                        "original_pages": {"type": "integer"}
                    }
                }
            }
        },
        "OutputFile": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "size": {"type": "integer"},
                "type": {"type": "string"},
                "url": {"type": "string"},
                "pages": {"type": "string"}
            }
        },
        "JobResponse": {
            "type": "object",
            "properties": {
                "job": {
                    "type": "object",
                    "properties": {
                        "id": {"type": "string"},
                        "tool_name": {"type": "string"},
                        "status": {"type": "string"},
                        "input_files": {"type": "array", "items": {"type": "object"}},
                        "output_files": {"type": "array", "items": {"$ref": "#/definitions/OutputFile"}},
                        "error_message": {"type": "string"},
                        "processing_time_ms": {"type": "integer"},
                        "created_at": {"type": "string"},
                        "completed_at": {"type": "string"}
                    }
                }
            }
        },
        "UsageResponse": {
            "type": "object",
            "properties": {
                "usage": {
                    "type": "object",
                    "properties": {
                        "current_usage": {"type": "integer"},
                        "usage_limit": {"type": "integer"},
                        "subscription_tier": {"type": "string"},
                        "usage_percentage": {"type": "integer"},
                        "usage_by_tool": {"type": "object"},
                        "usage_by_platform": {"type": "object"},
                        "recent_jobs": {"type": "array", "items": {"type": "object"}}
                    }
                }
            }
        },
        "ErrorBody": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"},
                "details": {"type": "object"}
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
