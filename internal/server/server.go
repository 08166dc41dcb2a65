// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

// Package server implements the conversion API: POST /convert and
// GET /health, both behind API-key auth. Each request is independent; the
// only shared state is the immutable configuration.
package server

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	markitdown "github.com/nicholasgasior/markitdown-api"
	"github.com/nicholasgasior/markitdown-api/internal/config"
	"github.com/nicholasgasior/markitdown-api/internal/fetch"
	"github.com/nicholasgasior/markitdown-api/internal/webextract"
)

// userAgent identifies outbound URL fetches.
const userAgent = "markitdown-api/1.0"

// documentBackend is the engine-facing surface of the document converter.
type documentBackend interface {
	ConvertBytes(data []byte, info markitdown.StreamInfo) (*markitdown.DocumentConverterResult, error)
}

// webExtractor is the HTML-facing extraction surface.
type webExtractor interface {
	Extract(data []byte, sourceURL, charset string) (*webextract.Result, error)
}

// fetcher downloads URL inputs.
type fetcher interface {
	Get(ctx context.Context, url string) (*fetch.Result, error)
}

// Server routes conversion requests to the right backend.
type Server struct {
	cfg *config.Config
	log zerolog.Logger

	docs    documentBackend
	web     webExtractor
	fetcher fetcher
}

// New builds a Server with the real backends.
func New(cfg *config.Config, log zerolog.Logger) *Server {
	return &Server{
		cfg: cfg,
		log: log,
		docs: markitdown.New(),
		web:  webextract.New(),
		fetcher: &fetch.Client{
			UserAgent: userAgent,
			Timeout:   cfg.Timeout,
			MaxBytes:  cfg.MaxDownloadSize,
		},
	}
}

// Handler returns the routed and middleware-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/convert", s.handleConvert)
	mux.HandleFunc("/health", s.handleHealth)

	return s.requestLog(s.requireAuth(mux))
}
