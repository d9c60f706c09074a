package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>sociopedia — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "sociopedia", "version": "v1.0.0" },
  "paths": {
    "/auth/register": {
      "post": {
        "summary": "Register a user; optional picture upload",
        "requestBody": { "content": { "multipart/form-data": { "schema": {"type":"object","properties":{"firstName":{"type":"string"},"lastName":{"type":"string"},"email":{"type":"string"},"password":{"type":"string"},"location":{"type":"string"},"occupation":{"type":"string"},"friends":{"type":"array","items":{"type":"string"}},"picture":{"type":"string","format":"binary"}}}}}},
        "responses": { "201": { "description": "user created" }, "400": { "description": "invalid form" }, "409": { "description": "email taken" } }
      }
    },
    "/auth/login": {
      "post": { "summary": "Login with email and password", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "token, refreshToken and user" }, "400": { "description": "invalid credentials" } } }
    },
    "/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Logout and invalidate refresh token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/users/{id}": {
      "get": { "summary": "Get a user", "responses": { "200": { "description": "user" }, "404": { "description": "not found" } } }
    },
    "/posts": {
      "get": { "summary": "Feed: every post, newest first", "responses": { "200": { "description": "posts" }, "404": { "description": "read failure" } } },
      "post": { "summary": "Create a post", "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["userId","description"],"properties":{"userId":{"type":"string"},"description":{"type":"string"},"picturePath":{"type":"string"}}}}}}, "responses": { "201": { "description": "created post" }, "400": { "description": "invalid body" }, "401": { "description": "missing token" }, "403": { "description": "not the owner" }, "404": { "description": "user not found" }, "409": { "description": "lookup or persist failure" } } }
    },
    "/posts/{userId}/posts": {
      "get": { "summary": "Posts by one user", "responses": { "200": { "description": "posts" }, "404": { "description": "read failure" } } }
    },
    "/posts/{id}/like": {
      "patch": { "summary": "Toggle a like", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"userId":{"type":"string"}}}}}}, "responses": { "200": { "description": "updated post" }, "404": { "description": "post not found" } } }
    },
    "/assets/{name}": { "get": { "summary": "Uploaded picture", "responses": { "200": { "description": "file" }, "404": { "description": "missing" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
