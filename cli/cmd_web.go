/*
 * Copyright (C) 2026 Simone Pezzano
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"github.com/theirish81/mcpdesk"
	"github.com/theirish81/mcpdesk/log"
)

type appRequest struct {
	App  string `param:"app" validate:"required"`
	Path string `query:"path"`
}

type serverRequest struct {
	App  string `param:"app" validate:"required"`
	Name string `param:"name" validate:"required,max=256"`
	Path string `query:"path"`
}

type listRequest struct {
	App     string `param:"app" validate:"required"`
	Path    string `query:"path"`
	Filter  string `query:"filter"`
	Secrets bool   `query:"secrets"`
}

type requestValidator struct {
	validator *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validator.Struct(i)
}

var web = &cobra.Command{
	Use:   "web",
	Short: "runs the mcpdesk web server",
	Long: `
Runs a web server exposing the configuration documents over HTTP, plus an MCP endpoint at /mcp and a stream of
server-sent events at /events. When MCPDESK_API_KEY is set, every request must carry it in the x-api-key header.
***WARNING***: the path query parameter lets clients read and write any file the process can access. Set an API key
and use this mode only in development or safe environments.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger()
		events := make(chan log.Event, 100)
		logger.SetChannel(events, log.InfoChannelLevel)
		defer logger.Close()
		hub := newEventHub()
		go hub.Run(events)

		manager, registry, err := newManager(logger)
		if err != nil {
			fail(cmd, err)
			return
		}
		e := newWebServer(manager, registry, hub, webLogger(), cfg.ApiKey)
		initMCP(e, manager)
		if err := e.Start(fmt.Sprintf(":%d", port)); err != nil {
			fail(cmd, err)
		}
	},
}

func init() {
	web.Flags().IntVarP(&port, "port", "", 8080, "port to listen on")
}

// webLogger returns the slog logger used for request logging.
func webLogger() *slog.Logger {
	if debug {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.Default()
}

// newWebServer builds the echo server exposing the manager. MCP is mounted separately.
func newWebServer(manager *mcpdesk.Manager, registry *mcpdesk.Applications, hub *eventHub, logger *slog.Logger,
	apiKey string) *echo.Echo {
	e := echo.New()
	addRequestLoggerMiddleware(e, logger)
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Validator = &requestValidator{validator: validate}
	if apiKey != "" {
		e.Use(echo.WrapMiddleware(requireApiKey(apiKey)))
	}

	e.GET("/apps", func(c echo.Context) error {
		return c.JSON(http.StatusOK, applicationsView(registry))
	})
	e.GET("/apps/:app/path", func(c echo.Context) error {
		req := appRequest{}
		if err := bindRequest(c, &req); err != nil {
			return err
		}
		path, err := manager.AppPath(req.App, req.Path)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"app": req.App, "path": path})
	})
	e.GET("/apps/:app/config", func(c echo.Context) error {
		req := appRequest{}
		if err := bindRequest(c, &req); err != nil {
			return err
		}
		doc, err := manager.Read(c.Request().Context(), req.App, req.Path)
		if err != nil {
			return err
		}
		return documentResponse(c, http.StatusOK, doc)
	})
	e.PUT("/apps/:app/config", func(c echo.Context) error {
		req := appRequest{}
		if err := bindRequest(c, &req); err != nil {
			return err
		}
		doc, err := readBody(c)
		if err != nil {
			return err
		}
		if err := manager.Write(c.Request().Context(), req.App, req.Path, doc); err != nil {
			return err
		}
		return documentResponse(c, http.StatusOK, doc)
	})
	e.GET("/apps/:app/servers", func(c echo.Context) error {
		req := listRequest{}
		if err := bindRequest(c, &req); err != nil {
			return err
		}
		collection, err := manager.Collection(c.Request().Context(), req.App, req.Path)
		if err != nil {
			return err
		}
		if req.Filter != "" {
			if collection, err = mcpdesk.FilterEntries(collection, req.Filter); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
		}
		servers, _ := mcpdesk.DecodeServers(collection)
		if !req.Secrets {
			servers = servers.Redacted()
		}
		return c.JSON(http.StatusOK, serversView(servers))
	})
	e.GET("/apps/:app/lint", func(c echo.Context) error {
		req := appRequest{}
		if err := bindRequest(c, &req); err != nil {
			return err
		}
		collection, err := manager.Collection(c.Request().Context(), req.App, req.Path)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, issuesView(mcpdesk.LintServers(collection)))
	})
	e.PUT("/apps/:app/servers/:name", func(c echo.Context) error {
		req := serverRequest{}
		if err := bindRequest(c, &req); err != nil {
			return err
		}
		entry, err := readBody(c)
		if err != nil {
			return err
		}
		doc, err := manager.AddServer(c.Request().Context(), req.App, req.Path, req.Name, entry)
		if err != nil {
			return err
		}
		return documentResponse(c, http.StatusOK, doc[manager.CollectionKey()])
	})
	e.DELETE("/apps/:app/servers/:name", func(c echo.Context) error {
		req := serverRequest{}
		if err := bindRequest(c, &req); err != nil {
			return err
		}
		doc, err := manager.RemoveServer(c.Request().Context(), req.App, req.Path, req.Name)
		if err != nil {
			return err
		}
		collection, ok := doc[manager.CollectionKey()]
		if !ok {
			collection = map[string]any{}
		}
		return documentResponse(c, http.StatusOK, collection)
	})
	if hub != nil {
		e.GET("/events", func(c echo.Context) error {
			id, events := hub.Subscribe()
			defer hub.Unsubscribe(id)
			return NewStreamer(c).Stream(events)
		})
	}
	return e
}

// bindRequest binds path and query parameters, then validates the request. The body is left alone, as it carries
// the document or the entry.
func bindRequest(c echo.Context, req any) error {
	binder := &echo.DefaultBinder{}
	if err := binder.BindPathParams(c, req); err != nil {
		return err
	}
	if err := binder.BindQueryParams(c, req); err != nil {
		return err
	}
	return c.Validate(req)
}

// readBody parses the request body as a JSON value. A blank body is rejected, so that a request can't wipe a
// configuration file by accident.
func readBody(c echo.Context) (any, error) {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "request body is empty")
	}
	return mcpdesk.NewDocumentStore(mcpdesk.StoreOptions{}).Read(data, "request body")
}

// documentResponse writes a JSON value with the document serializer, so that numbers keep their spelling.
func documentResponse(c echo.Context, status int, value any) error {
	data, err := mcpdesk.NewDocumentStore(mcpdesk.StoreOptions{}).Write(value)
	if err != nil {
		return err
	}
	return c.Blob(status, echo.MIMEApplicationJSON, data)
}

// errorHandler maps errors to status codes.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	_ = c.JSON(errorStatus(err), echo.Map{"error": errorMessage(err)})
}

func errorStatus(err error) int {
	var parseErr *mcpdesk.ParseError
	var notFoundErr *mcpdesk.NotFoundError
	var schemaErr *mcpdesk.SchemaError
	var validationErrs validator.ValidationErrors
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &schemaErr):
		return http.StatusConflict
	case errors.As(err, &validationErrs), errors.Is(err, mcpdesk.ErrEmptyEntryName):
		return http.StatusBadRequest
	case errors.As(err, &httpErr):
		return httpErr.Code
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Sprint(httpErr.Message)
	}
	return err.Error()
}

// addRequestLoggerMiddleware adds a middleware that logs each request.
func addRequestLoggerMiddleware(e *echo.Echo, log *slog.Logger) {
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true, // forwards error to the global error handler, so it can decide appropriate status code
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				log.LogAttrs(context.Background(), slog.LevelInfo, "REQUEST",
					slog.String("method", v.Method),
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
				)
			} else {
				log.LogAttrs(context.Background(), slog.LevelError, "REQUEST_ERROR",
					slog.String("method", v.Method),
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.String("err", v.Error.Error()),
				)
			}
			return nil
		},
	}))
}

func requireApiKey(key string) func(handler http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("x-api-key") == key {
				handler.ServeHTTP(w, r)
			} else {
				w.WriteHeader(http.StatusForbidden)
			}
		})
	}
}
