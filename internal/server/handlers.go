package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/rs/zerolog"

	markitdown "github.com/nicholasgasior/markitdown-api"
	"github.com/nicholasgasior/markitdown-api/internal/classify"
	"github.com/nicholasgasior/markitdown-api/internal/fetch"
)

// methodDocument is the conversion_method label for the document backend.
const methodDocument = "markitdown"

// multipartMemoryLimit is the in-memory threshold for multipart parsing;
// larger uploads spill to temp files.
const multipartMemoryLimit = 32 << 20

// Metadata describes a completed conversion.
type Metadata struct {
	ContentType      string  `json:"content_type"`
	FileSize         int64   `json:"file_size"`
	ProcessingTime   float64 `json:"processing_time"`
	OriginalURL      string  `json:"original_url,omitempty"`
	ConversionMethod string  `json:"conversion_method"`
}

// ConversionResponse is the POST /convert success payload.
type ConversionResponse struct {
	Result   string   `json:"result"`
	Metadata Metadata `json:"metadata"`
}

// HealthResponse is the GET /health payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: s.cfg.Version,
	})
}

// input is a validated conversion request: exactly one of file or url.
type input struct {
	data     []byte
	filename string
	url      string
	// declaredMIME is the upload part's Content-Type or the origin server's,
	// media type only.
	declaredMIME string
	charset      string
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	start := time.Now()
	log := zerolog.Ctx(r.Context())

	in, status, detail := s.readInput(r)
	if detail != "" {
		writeError(w, status, detail)
		return
	}

	src, err := classify.Classify(sourceName(in), in.declaredMIME, in.data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unsupported or invalid file format")
		return
	}

	var (
		md     string
		method string
	)
	switch src.Kind {
	case classify.KindWeb:
		res, err := s.web.Extract(in.data, in.url, in.charset)
		if err != nil {
			log.Error().Err(err).Str("url", in.url).Msg("web extraction failed")
			writeError(w, http.StatusInternalServerError, "Conversion failed")
			return
		}
		md, method = res.Markdown, res.Method

	default:
		res, err := s.docs.ConvertBytes(in.data, markitdown.StreamInfo{
			MIMEType:  src.MIMEType,
			Extension: src.Extension,
			Charset:   in.charset,
			Filename:  in.filename,
			URL:       in.url,
		})
		if err != nil {
			if markitdown.IsUnsupportedFormat(err) {
				writeError(w, http.StatusBadRequest, "Unsupported or invalid file format")
				return
			}
			log.Error().Err(err).Str("extension", src.Extension).Msg("document conversion failed")
			writeError(w, http.StatusInternalServerError, "Conversion failed")
			return
		}
		md, method = res.Markdown, methodDocument
	}

	writeJSON(w, http.StatusOK, ConversionResponse{
		Result: md,
		Metadata: Metadata{
			ContentType:      contentTypeOf(in, src),
			FileSize:         int64(len(in.data)),
			ProcessingTime:   time.Since(start).Seconds(),
			OriginalURL:      in.url,
			ConversionMethod: method,
		},
	})
}

// readInput parses and validates the multipart form, enforcing the
// one-of-{file,url} invariant, then loads the content from the upload or the
// network. A non-empty detail means the request failed with that status.
func (s *Server) readInput(r *http.Request) (*input, int, string) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return nil, http.StatusBadRequest, "Failed to parse multipart form"
	}

	urlField := r.FormValue("url")
	file, header, err := r.FormFile("file")
	hasFile := err == nil

	switch {
	case !hasFile && urlField == "":
		return nil, http.StatusBadRequest, "Either file or url must be provided"
	case hasFile && urlField != "":
		file.Close()
		return nil, http.StatusBadRequest, "Only one of file or url should be provided"
	}

	if hasFile {
		defer file.Close()
		return s.readUpload(file, header)
	}

	if err := validation.Validate(urlField, validation.Required, is.URL); err != nil {
		return nil, http.StatusBadRequest, "Invalid URL"
	}
	return s.fetchURL(r.Context(), urlField)
}

func (s *Server) readUpload(file multipart.File, header *multipart.FileHeader) (*input, int, string) {
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxDownloadSize+1))
	if err != nil {
		return nil, http.StatusBadRequest, "Failed to read uploaded file"
	}
	if int64(len(data)) > s.cfg.MaxDownloadSize {
		return nil, http.StatusRequestEntityTooLarge, s.tooLargeDetail()
	}

	declared, charset := fetch.SplitContentType(header.Header.Get("Content-Type"))
	return &input{
		data:         data,
		filename:     header.Filename,
		declaredMIME: declared,
		charset:      charset,
	}, http.StatusOK, ""
}

func (s *Server) fetchURL(ctx context.Context, rawURL string) (*input, int, string) {
	res, err := s.fetcher.Get(ctx, rawURL)
	if err != nil {
		switch {
		case errors.Is(err, fetch.ErrTooLarge):
			return nil, http.StatusRequestEntityTooLarge, s.tooLargeDetail()
		case errors.Is(err, context.DeadlineExceeded):
			return nil, http.StatusRequestTimeout, "Request timeout"
		default:
			return nil, http.StatusBadRequest, fmt.Sprintf("Failed to download file: %v", err)
		}
	}

	return &input{
		data:         res.Body,
		url:          rawURL,
		declaredMIME: res.ContentType,
		charset:      res.Charset,
	}, http.StatusOK, ""
}

func (s *Server) tooLargeDetail() string {
	return fmt.Sprintf("File too large. Maximum size is %.2fMB",
		float64(s.cfg.MaxDownloadSize)/1024/1024)
}

// sourceName is the name the classifier inspects for an extension.
func sourceName(in *input) string {
	if in.filename != "" {
		return in.filename
	}
	return in.url
}

// contentTypeOf reports the classified media type, which folds in anything
// usable the client or origin server declared.
func contentTypeOf(in *input, src *classify.Source) string {
	if src.MIMEType != "" {
		return src.MIMEType
	}
	if in.declaredMIME != "" {
		return in.declaredMIME
	}
	return "application/octet-stream"
}
