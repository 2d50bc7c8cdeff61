package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/internal"
	"github.com/lychee-technology/formview/internal/store"
	"go.uber.org/zap"
)

const maxUUIDs = 1000

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.schemas.Index())
}

func (s *Server) handleUUIDs(w http.ResponseWriter, r *http.Request) {
	count := 1
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", "count has to be a positive integer")
			return
		}
		count = min(n, maxUUIDs)
	}
	ids := make([]string, count)
	for i := range ids {
		ids[i] = store.NewID()
	}
	writeJSON(w, http.StatusOK, map[string]any{"uuids": ids})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema, ok := s.schemaFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.schemaFor(w, r); !ok {
		return
	}
	if name := r.PathValue("name"); name != "all" {
		writeError(w, http.StatusNotFound, "not_found", "missing view: "+name)
		return
	}
	s.list(w, r, "")
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.schemaFor(w, r); !ok {
		return
	}
	if name := r.PathValue("name"); name != "text" {
		writeError(w, http.StatusNotFound, "not_found", "missing search index: "+name)
		return
	}
	q := queryParams(r)
	text, _ := q["q"].(string)
	if text == "" {
		text, _ = q["query"].(string)
	}
	s.list(w, r, text)
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.schemaFor(w, r); !ok {
		return
	}
	s.list(w, r, "")
}

// list answers view, search and collection queries with {total_rows, offset, rows}.
func (s *Server) list(w http.ResponseWriter, r *http.Request, text string) {
	typeName := r.PathValue("type")
	q := queryParams(r)

	query := store.ListQuery{Text: text}
	if v, ok := q["startkey"].(string); ok {
		query.StartKey = v
	}
	if v, ok := q["limit"].(float64); ok && v > 0 {
		query.Limit = int(v)
	}
	includeDocs, _ := q["include_docs"].(bool)

	docs, total, err := s.store.List(r.Context(), typeName, query)
	if err != nil {
		s.storeError(w, err)
		return
	}
	rows := make([]formview.ViewRow, 0, len(docs))
	for _, doc := range docs {
		row := formview.ViewRow{ID: doc.ID(), Key: doc.ID(), Value: map[string]any{"rev": doc.Rev()}}
		if includeDocs {
			row.Doc = doc
		}
		rows = append(rows, row)
	}
	writeJSON(w, http.StatusOK, formview.ViewResult{TotalRows: total, Rows: rows})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.schemaFor(w, r); !ok {
		return
	}
	doc, err := s.store.Get(r.Context(), r.PathValue("type"), r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	s.save(w, r, "", "")
}

func (s *Server) handleCreateWithID(w http.ResponseWriter, r *http.Request) {
	s.save(w, r, r.PathValue("id"), "")
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	s.save(w, r, r.PathValue("id"), r.PathValue("rev"))
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, id, rev string) {
	schema, ok := s.schemaFor(w, r)
	if !ok {
		return
	}
	typeName := r.PathValue("type")

	doc, files, err := s.readDocument(w, r, typeName)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if id != "" {
		doc[formview.FieldID] = id
	}
	if rev != "" {
		doc[formview.FieldRev] = rev
	}

	if errs := internal.CheckDocument(schema, doc); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": formview.ValidationFailedMessage,
			"errors":  errs,
		})
		return
	}

	for _, f := range files {
		key := store.NewID() + "-" + safeFileName(f.Name)
		url, err := s.blobs.Put(r.Context(), key, f.ContentType, f.Data)
		if err != nil {
			zap.S().Warnw("attachment upload failed", "type", typeName, "file", f.Name, "error", err)
			writeError(w, http.StatusInternalServerError, "upload_failed", err.Error())
			return
		}
		setImageURL(map[string]any(doc), f.Name, url)
	}

	saved, err := s.store.Put(r.Context(), typeName, doc)
	if err != nil {
		s.storeError(w, err)
		return
	}
	status := http.StatusOK
	if rev == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, saved)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.schemaFor(w, r); !ok {
		return
	}
	if err := s.store.Delete(r.Context(), r.PathValue("type"), r.PathValue("id"), r.PathValue("rev")); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.blobs.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		if errors.Is(err, store.ErrBlobNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "missing attachment")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) schemaFor(w http.ResponseWriter, r *http.Request) (*formview.Schema, bool) {
	typeName := r.PathValue("type")
	schema, ok := s.schemas.Get(typeName)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown type: "+typeName)
		return nil, false
	}
	return schema, true
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "missing")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", "Document update conflict.")
	default:
		zap.S().Warnw("store failure", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

// readDocument decodes a JSON body, or a multipart body carrying the document and its files.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request, typeName string) (formview.Document, []formview.Attachment, error) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		var doc formview.Document
		if err := readJSONBody(r, &doc); err != nil {
			return nil, nil, fmt.Errorf("invalid document: %w", err)
		}
		if doc == nil {
			doc = formview.Document{}
		}
		return doc, nil, nil
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, nil, fmt.Errorf("invalid multipart body: %w", err)
	}
	if t := r.FormValue(formview.FieldType); t != "" && t != typeName {
		return nil, nil, fmt.Errorf("multipart type %q does not match %q", t, typeName)
	}
	var doc formview.Document
	if err := json.Unmarshal([]byte(r.FormValue("doc")), &doc); err != nil {
		return nil, nil, fmt.Errorf("invalid document: %w", err)
	}
	if doc == nil {
		doc = formview.Document{}
	}
	if id := r.FormValue(formview.FieldID); id != "" {
		doc[formview.FieldID] = id
	}
	if rev := r.FormValue(formview.FieldRev); rev != "" {
		doc[formview.FieldRev] = rev
	}

	numFiles, err := strconv.Atoi(r.FormValue("numFiles"))
	if err != nil || numFiles < 0 {
		return nil, nil, fmt.Errorf("invalid numFiles")
	}
	files := make([]formview.Attachment, 0, numFiles)
	for i := 0; i < numFiles; i++ {
		f, header, err := r.FormFile("file" + strconv.Itoa(i))
		if err != nil {
			return nil, nil, fmt.Errorf("missing file%d: %w", i, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("read file%d: %w", i, err)
		}
		files = append(files, formview.Attachment{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return doc, files, nil
}
