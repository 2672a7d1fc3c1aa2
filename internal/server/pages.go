package server

import (
	"bytes"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	derrors "git.home.luguber.info/inful/docchrome/internal/foundation/errors"
	"git.home.luguber.info/inful/docchrome/internal/logfields"
	"git.home.luguber.info/inful/docchrome/internal/metrics"
	"git.home.luguber.info/inful/docchrome/internal/rustdoc"
	"git.home.luguber.info/inful/docchrome/internal/templates"
)

const indexFile = "index.html"

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	name, err := resolvePath(r.URL.Path)
	if err != nil {
		s.adapter.WriteErrorResponse(w, r, err)
		return
	}

	f, info, err := s.open(name)
	if err != nil {
		s.adapter.WriteErrorResponse(w, r, err)
		return
	}
	defer f.Close()
	if info.IsDir() {
		if !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		name = path.Join(name, indexFile)
		if f, info, err = s.open(name); err != nil {
			s.adapter.WriteErrorResponse(w, r, err)
			return
		}
		defer f.Close()
	}

	if path.Ext(name) != ".html" {
		http.ServeContent(w, r, name, info.ModTime(), f)
		return
	}

	src, err := io.ReadAll(f)
	if err != nil {
		s.adapter.WriteErrorResponse(w, r, derrors.WrapError(err, derrors.CategoryFileSystem, "read page").
			WithContext("page", name).
			Build())
		return
	}
	s.servePage(w, r, name, info.ModTime(), src)
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request, name string, modTime time.Time, src []byte) {
	start := time.Now()
	out, err := rustdoc.RewritePage(src, int(s.cfg.Rewrite.MaxMemory), s.pageContext(name), s.store)
	s.recorder.ObserveRewriteDuration(time.Since(start))
	if err != nil {
		s.recorder.IncRewriteOutcome(string(derrors.GetCategory(err)))
		s.logger.WarnContext(r.Context(), "Page rewrite failed",
			logfields.Page(name),
			logfields.Category(string(derrors.GetCategory(err))),
			logfields.BytesIn(len(src)),
			logfields.MemoryLimit(int(s.cfg.Rewrite.MaxMemory)))
		s.adapter.WriteErrorResponse(w, r, err)
		return
	}
	s.recorder.IncRewriteOutcome(metrics.OutcomeSuccess)
	s.recorder.ObservePageBytes(len(src), len(out))

	// Pages in legacy encodings pass through byte for byte; do not claim UTF-8 for them.
	if utf8.Valid(out) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	http.ServeContent(w, r, name, modTime, bytes.NewReader(out))
}

// pageContext is the static template context plus values derived from the
// page path: page_path, krate and, for versioned layouts, version.
func (s *Server) pageContext(name string) templates.Context {
	ctx := templates.Context(s.cfg.Templates.Context).Merge(templates.Context{"page_path": "/" + name})
	parts := strings.Split(name, "/")
	if len(parts) > 1 {
		ctx.Insert("krate", parts[0])
		if len(parts) > 2 && looksLikeVersion(parts[1]) {
			ctx.Insert("version", parts[1])
		}
	}
	return ctx
}

func looksLikeVersion(seg string) bool {
	if seg == "latest" {
		return true
	}
	return seg != "" && seg[0] >= '0' && seg[0] <= '9'
}

// resolvePath maps a URL path to a slash-separated name relative to the docs
// root. Any ".." segment is rejected.
func resolvePath(urlPath string) (string, error) {
	for _, seg := range strings.Split(urlPath, "/") {
		if seg == ".." {
			return "", derrors.NotFoundError("page not found").WithContext("path", urlPath).Build()
		}
	}
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		name = "."
	}
	return name, nil
}

func (s *Server) open(name string) (*os.File, fs.FileInfo, error) {
	f, err := s.root.Open(filepath.FromSlash(name))
	if err != nil {
		return nil, nil, derrors.WrapError(err, derrors.CategoryNotFound, "page not found").
			WithContext("path", name).
			Build()
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, derrors.WrapError(err, derrors.CategoryFileSystem, "stat page").
			WithContext("path", name).
			Build()
	}
	return f, info, nil
}
