package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/wiredto/pkg/codec"
	"github.com/ssargent/wiredto/pkg/logging"
	"github.com/ssargent/wiredto/pkg/proto"
	"github.com/ssargent/wiredto/pkg/storage"
)

const defaultMaxPayload = 1 << 20

// Server holds the API server state
type Server struct {
	corpus  Corpus
	journal Journal
	config  ServerConfig
	metrics *Metrics
	logger  zerolog.Logger
}

// NewServer creates a new API server. corpus and journal may be nil, in
// which case their routes answer 503.
func NewServer(corpus Corpus, journal Journal, config ServerConfig, metrics *Metrics) *Server {
	if config.MaxPayload <= 0 {
		config.MaxPayload = defaultMaxPayload
	}
	config.Limits = config.Limits.Clamp()
	return &Server{
		corpus:  corpus,
		journal: journal,
		config:  config,
		metrics: metrics,
		logger:  logging.Component("api"),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

func (s *Server) handleListTypes(w http.ResponseWriter, r *http.Request) {
	descs := proto.Descriptors()
	types := make([]TypeInfo, 0, len(descs))
	for _, d := range descs {
		types = append(types, TypeInfoFor(d.Schema))
	}
	sendSuccess(w, types)
}

func (s *Server) handleGetType(w http.ResponseWriter, r *http.Request) {
	desc, ok := s.resolve(w, r)
	if !ok {
		return
	}
	sendSuccess(w, TypeInfoFor(desc.Schema))
}

// handleSample returns the encoding of the type's sample value.
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	desc, ok := s.resolve(w, r)
	if !ok {
		return
	}
	v := desc.Sample()
	payload, err := codec.Marshal(v)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to encode sample: %v", err), http.StatusInternalServerError)
		return
	}
	sendSuccess(w, CorpusEntryResponse{Type: desc.Name, Size: len(payload), Payload: payload, Value: v})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	desc, ok := s.resolve(w, r)
	if !ok {
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	start := time.Now()
	buf := codec.NewBuffer(body)
	res := desc.Validate(buf, 0, s.config.Limits)
	resp := ValidateResponse{Type: desc.Name, OK: res.OK}
	if res.OK {
		n, err := desc.Schema.BytesConsumed(buf, 0)
		if err != nil {
			res = codec.Invalid(err)
			resp.OK = false
		} else {
			resp.BytesConsumed = n
			resp.Trailing = len(body) - n
		}
	}
	if !res.OK {
		resp.Kind = res.Kind.String()
		resp.Reason = res.Reason
	}
	s.metrics.RecordCodecOperation(desc.Name, "validate", len(body), resp.OK, time.Since(start))

	sendSuccess(w, resp)
}

// handleDecode validates the body, decodes it and reports whether
// re-encoding the value reproduces the bytes that were consumed.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	desc, ok := s.resolve(w, r)
	if !ok {
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	start := time.Now()
	buf := codec.NewBuffer(body)
	if res := desc.Validate(buf, 0, s.config.Limits); !res.OK {
		s.metrics.RecordCodecOperation(desc.Name, "decode", len(body), false, time.Since(start))
		sendError(w, res.Err().Error(), http.StatusUnprocessableEntity)
		return
	}
	v, n, err := desc.Decode(buf, 0)
	if err != nil {
		s.metrics.RecordCodecOperation(desc.Name, "decode", len(body), false, time.Since(start))
		sendError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	out, err := codec.Marshal(v)
	canonical := err == nil && bytes.Equal(out, body[:n])
	s.metrics.RecordCodecOperation(desc.Name, "decode", len(body), true, time.Since(start))

	if !canonical {
		s.logger.Warn().Str("type", desc.Name).Int("size", n).Msg("decoded value does not re-encode to its input")
	}

	sendSuccess(w, DecodeResponse{
		Type:          desc.Name,
		BytesConsumed: n,
		Canonical:     canonical,
		Value:         v,
	})
}

func (s *Server) handleCorpusPut(w http.ResponseWriter, r *http.Request) {
	if s.corpus == nil {
		sendError(w, "Corpus is not configured", http.StatusServiceUnavailable)
		return
	}
	desc, ok := s.resolve(w, r)
	if !ok {
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	start := time.Now()
	id, err := s.corpus.Put(desc.Name, body)
	s.metrics.RecordCodecOperation(desc.Name, "store", len(body), err == nil, time.Since(start))
	if err != nil {
		sendError(w, err.Error(), statusFor(err))
		return
	}

	sendJSON(w, http.StatusCreated, CorpusEntryResponse{ID: id.String(), Type: desc.Name, Size: len(body)})
}

func (s *Server) handleCorpusGet(w http.ResponseWriter, r *http.Request) {
	if s.corpus == nil {
		sendError(w, "Corpus is not configured", http.StatusServiceUnavailable)
		return
	}
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid corpus id", http.StatusBadRequest)
		return
	}

	e, err := s.corpus.Get(id)
	if err != nil {
		sendError(w, err.Error(), statusFor(err))
		return
	}

	resp := CorpusEntryResponse{ID: e.ID.String(), Type: e.Type, Size: len(e.Payload), Payload: e.Payload}
	if desc, ok := proto.Lookup(e.Type); ok {
		if v, _, err := desc.Decode(codec.NewBuffer(e.Payload), 0); err == nil {
			resp.Value = v
		} else {
			s.logger.Warn().Err(err).Str("id", e.ID.String()).Msg("stored entry no longer decodes")
		}
	}
	sendSuccess(w, resp)
}

func (s *Server) handleJournalAppend(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		sendError(w, "Journal is not configured", http.StatusServiceUnavailable)
		return
	}
	desc, ok := s.resolve(w, r)
	if !ok {
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	start := time.Now()
	offset, err := s.journal.Append(desc.Name, body)
	s.metrics.RecordCodecOperation(desc.Name, "journal", len(body), err == nil, time.Since(start))
	if err != nil {
		sendError(w, err.Error(), statusFor(err))
		return
	}

	sendJSON(w, http.StatusCreated, JournalAppendResponse{Type: desc.Name, Offset: offset, Size: len(body)})
}

// resolve looks up the {type} URL parameter, answering 404 when it is
// not registered.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (proto.Descriptor, bool) {
	desc, err := proto.Resolve(chi.URLParam(r, "type"))
	if err != nil {
		sendError(w, err.Error(), http.StatusNotFound)
		return proto.Descriptor{}, false
	}
	return desc, true
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(s.config.MaxPayload)))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var pe *codec.ProtocolError
	switch {
	case errors.Is(err, proto.ErrUnknownType), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &pe), errors.Is(err, proto.ErrTrailingData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// updateStorageStats refreshes the corpus and journal gauges.
func (s *Server) updateStorageStats() {
	var entries int
	if s.corpus != nil {
		n, err := s.corpus.Count("")
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to count corpus entries")
			return
		}
		entries = n
	}
	var size int64
	if s.journal != nil {
		size = s.journal.Size()
	}
	s.metrics.UpdateStorageStats(entries, size)
}
