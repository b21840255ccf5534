package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "TxNT Submissions API",
        "description": "Competition submissions, presigned uploads and website forms for the Texas Neurotech Competition",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http",
        "https"
    ],
    "tags": [
        {"name": "Uploads", "description": "Direct-to-storage upload credentials"},
        {"name": "Submissions", "description": "Competition entries, inline or by storage reference"},
        {"name": "Forms", "description": "Contact and registration forms"},
        {"name": "Ops", "description": "Probes and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Ops"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Ops"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/presigned-url": {
            "post": {
                "tags": ["Uploads"],
                "summary": "Issue a presigned upload URL",
                "description": "Returns a one hour write credential scoped to a fresh storage key. PUT the file to uploadUrl sending every entry of headers.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PresignRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/PresignResponse"}},
                    "400": {"description": "Validation failure or file too large", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "500": {"description": "Storage provider failure", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/submit": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Submit a small file inline",
                "parameters": [
                    {"name": "Idempotency-Key", "in": "header", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SmallSubmissionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SubmissionResponse"}},
                    "400": {"description": "Validation failure or file too large", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "409": {"description": "Duplicate submission", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "500": {"description": "Email provider failure", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/submit-large": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Notify organizers about an uploaded file",
                "parameters": [
                    {"name": "Idempotency-Key", "in": "header", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LargeSubmissionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SubmissionResponse"}},
                    "400": {"description": "Validation failure", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "409": {"description": "Duplicate submission", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "500": {"description": "Email provider failure", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/contact": {
            "post": {
                "tags": ["Forms"],
                "summary": "Send a contact form message",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ContactRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "400": {"description": "Validation failure", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "500": {"description": "Email provider failure", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/register": {
            "post": {
                "tags": ["Forms"],
                "summary": "Register a club for the competition",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegistrationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "400": {"description": "Validation failure", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "500": {"description": "Email provider failure", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        }
    },
    "definitions": {
        "PresignRequest": {
            "type": "object",
            "required": ["fileName", "fileSize", "teamName"],
            "properties": {
                "fileName": {"type": "string"},
                "fileSize": {"type": "integer", "description": "Bytes, at most 500MB"},
                "contentType": {"type": "string"},
                "teamName": {"type": "string"}
            }
        },
        "PresignResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "uploadUrl": {"type": "string"},
                "s3Key": {"type": "string"},
                "downloadUrl": {"type": "string"},
                "expiresIn": {"type": "integer"},
                "headers": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "SubmissionMetadata": {
            "type": "object",
            "required": ["team_name", "university", "team_leader", "contact_email", "project_title", "project_description", "file_name"],
            "properties": {
                "team_name": {"type": "string"},
                "university": {"type": "string"},
                "team_leader": {"type": "string"},
                "contact_email": {"type": "string", "format": "email"},
                "team_members": {"type": "string", "description": "One member per line"},
                "project_title": {"type": "string"},
                "project_description": {"type": "string"},
                "file_name": {"type": "string"},
                "file_size": {"type": "integer"},
                "content_type": {"type": "string"},
                "request_id": {"type": "string", "description": "Alternative to the Idempotency-Key header"}
            }
        },
        "SmallSubmissionRequest": {
            "allOf": [
                {"$ref": "#/definitions/SubmissionMetadata"},
                {
                    "type": "object",
                    "required": ["file_data"],
                    "properties": {
                        "file_data": {"type": "string", "description": "Base64 file content, at most 50MB decoded"}
                    }
                }
            ]
        },
        "LargeSubmissionRequest": {
            "allOf": [
                {"$ref": "#/definitions/SubmissionMetadata"},
                {
                    "type": "object",
                    "required": ["s3_download_url", "file_size"],
                    "properties": {
                        "s3_download_url": {"type": "string"},
                        "s3_key": {"type": "string"}
                    }
                }
            ]
        },
        "SubmissionResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "submissionId": {"type": "string"}
            }
        },
        "ContactRequest": {
            "type": "object",
            "required": ["name", "email", "organization", "message"],
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string", "format": "email"},
                "organization": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "RegistrationRequest": {
            "type": "object",
            "required": ["club_name", "university", "representative", "contact_email", "project_description"],
            "properties": {
                "club_name": {"type": "string"},
                "university": {"type": "string"},
                "representative": {"type": "string"},
                "contact_email": {"type": "string", "format": "email"},
                "project_description": {"type": "string"},
                "questions": {"type": "string"}
            }
        },
        "MessageResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"}
            }
        },
        "ErrorBody": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "error": {"type": "string"},
                "code": {"type": "string"},
                "fields": {"type": "array", "items": {"type": "string"}},
                "details": {"type": "string"}
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
