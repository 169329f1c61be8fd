package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/getsentry/sentry-go"
	gojson "github.com/goccy/go-json"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"github.com/methodgraph/methodgraph/internal/profile"
	"github.com/methodgraph/methodgraph/internal/storageutil"
)

type PostProfileResponse struct {
	ProfileID string `json:"profile_id"`
	Methods   int    `json:"methods"`
}

func (e *environment) postProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	s := sentry.StartSpan(ctx, "request.body")
	s.Description = "Read request body"
	body, err := io.ReadAll(r.Body)
	s.Finish()
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s = sentry.StartSpan(ctx, "json.unmarshal")
	s.Description = "Unmarshal ingest payload"
	var payload profile.IngestPayload
	err = gojson.Unmarshal(body, &payload)
	s.Finish()
	if err != nil {
		log.Err(err).Msg("ingest payload can't be unmarshaled")
		hub.CaptureException(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	p := profile.New(payload.Metadata)
	s = sentry.StartSpan(ctx, "profile.ingest")
	s.Description = "Replay event stream"
	err = p.Ingest(payload)
	s.Finish()
	if err != nil {
		log.Err(err).Str("profile_id", p.ID()).Msg("event stream can't be replayed")
		hub.CaptureException(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s = sentry.StartSpan(ctx, "storage.write")
	s.Description = "Write profile to storage"
	err = storageutil.CompressedWrite(ctx, e.storage, p.StoragePath(), p.Dump())
	s.Finish()
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s = sentry.StartSpan(ctx, "kafka.write")
	s.Description = "Publish call tree functions"
	err = e.publishCallTrees(ctx, p)
	s.Finish()
	if err != nil {
		// The profile is stored; a failed publication is not fatal.
		hub.CaptureException(err)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = gojson.NewEncoder(w).Encode(PostProfileResponse{
		ProfileID: p.ID(),
		Methods:   p.Registry().Len(),
	})
}

func (e *environment) getProfileMethods(w http.ResponseWriter, r *http.Request) {
	p, ok := e.readProfile(w, r)
	if !ok {
		return
	}
	defer p.Release()

	w.Header().Set("Content-Type", "application/json")
	_ = gojson.NewEncoder(w).Encode(p.MethodReports())
}

func (e *environment) getProfileCalltree(w http.ResponseWriter, r *http.Request) {
	p, ok := e.readProfile(w, r)
	if !ok {
		return
	}
	defer p.Release()

	w.Header().Set("Content-Type", "application/json")
	_ = gojson.NewEncoder(w).Encode(p.CalltreeFunctions())
}

func (e *environment) readProfile(w http.ResponseWriter, r *http.Request) (*profile.Profile, bool) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)
	ps := httprouter.ParamsFromContext(ctx)
	profileID := ps.ByName("profile_id")

	var envelope profile.Envelope
	s := sentry.StartSpan(ctx, "storage.read")
	s.Description = "Read profile from storage"
	err := storageutil.UnmarshalCompressed(ctx, e.storage, fmt.Sprintf("profiles/%s", profileID), &envelope)
	s.Finish()
	if err != nil {
		if errors.Is(err, storageutil.ErrObjectNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return nil, false
		}
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return nil, false
	}

	p, err := profile.Load(envelope)
	if err != nil {
		log.Err(err).Str("profile_id", profileID).Msg("stored profile can't be loaded")
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return nil, false
	}
	return p, true
}
