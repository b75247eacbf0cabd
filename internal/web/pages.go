package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"file_cleanup/internal/logger"
	"file_cleanup/internal/resource"
	"file_cleanup/internal/service"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templateFuncs = template.FuncMap{
	"bytes": func(n int64) string { return humanize.Bytes(uint64(max(n, 0))) },
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return humanize.Time(t)
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04")
	},
}

type fileRow struct {
	UID           int64
	Name          string
	Path          string
	URL           string
	Size          int64
	Modified      time.Time
	LastReference time.Time
	Thumb         bool
}

type listData struct {
	Flash      []flashMessage
	Folder     string
	FolderPath string
	Recursive  bool
	Thumbs     bool
	Files      []fileRow
	TotalSize  int64
}

type pages struct {
	backend  Backend
	listTmpl *template.Template
}

func newPages(backend Backend) *pages {
	return &pages{
		backend:  backend,
		listTmpl: template.Must(template.New("list.html").Funcs(templateFuncs).ParseFS(templatesFS, "templates/list.html")),
	}
}

// list renders the unused files of the requested folder. Unknown folders
// fall back to the root of the first storage with a notice.
func (p *pages) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := listData{
		Flash:     popFlash(w, r),
		Recursive: q.Get("recursive") == "1",
		Thumbs:    q.Get("thumbs") == "1",
	}

	folder, notice, err := p.resolveFolder(r, q.Get("id"))
	if err != nil {
		logger.Error.Printf("Failed to resolve folder %q: %v", q.Get("id"), err)
		http.Error(w, "no folder available", http.StatusInternalServerError)
		return
	}
	if notice != nil {
		data.Flash = append(data.Flash, *notice)
	}
	data.Folder = folder.CombinedIdentifier()
	data.FolderPath = folder.ReadablePath()

	unused, err := p.backend.FindUnused(r.Context(), folder, data.Recursive)
	if err != nil {
		logger.Error.Printf("Failed to list unused files of %s: %v", data.Folder, err)
		http.Error(w, "failed to list unused files", http.StatusInternalServerError)
		return
	}
	for _, u := range unused {
		f := u.File()
		data.Files = append(data.Files, fileRow{
			UID:           f.UID(),
			Name:          f.Name(),
			Path:          f.Identifier(),
			URL:           f.PublicURL(),
			Size:          f.Size(),
			Modified:      f.ModTime(),
			LastReference: u.LastReferenceTime(),
			Thumb:         data.Thumbs && f.IsImage(),
		})
		data.TotalSize += f.Size()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := p.listTmpl.Execute(w, data); err != nil {
		logger.Error.Printf("Failed to render file list: %v", err)
	}
}

func (p *pages) resolveFolder(r *http.Request, id string) (*resource.Folder, *flashMessage, error) {
	if id != "" {
		folder, err := p.backend.Folder(r.Context(), id)
		switch {
		case err == nil && folder.Storage().IsProcessingPath(folder.Identifier()):
			// Derived files are never listed
			return folder.Storage().RootFolder(), nil, nil
		case err == nil:
			return folder, nil, nil
		case !errors.Is(err, service.ErrUnknownFolder):
			return nil, nil, err
		}

		folder, err = p.backend.DefaultFolder()
		if err != nil {
			return nil, nil, err
		}
		return folder, &flashMessage{
			Severity: string(service.SeverityNotice),
			Title:    "Folder not found",
			Message:  fmt.Sprintf("The folder %q could not be found, showing %s instead.", id, folder.ReadablePath()),
		}, nil
	}

	folder, err := p.backend.DefaultFolder()
	return folder, nil, err
}

// cleanup moves the selected files to their recycler folders and redirects
// back to the listing.
func (p *pages) cleanup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	var uids []int64
	for _, raw := range r.PostForm["files"] {
		uid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || uid <= 0 {
			continue
		}
		uids = append(uids, uid)
	}

	report := p.backend.MoveSelected(r.Context(), uids)
	setFlash(w, report.Notifications)

	back := url.Values{}
	if id := r.PostFormValue("id"); id != "" {
		back.Set("id", id)
	}
	for _, opt := range []string{"recursive", "thumbs"} {
		if r.PostFormValue(opt) == "1" {
			back.Set(opt, "1")
		}
	}
	target := "/"
	if len(back) > 0 {
		target += "?" + back.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// file streams an image for the thumbnail column.
func (p *pages) file(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.ParseInt(chi.URLParam(r, "uid"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	f, content, err := p.backend.OpenFile(r.Context(), uid)
	if resource.IsNotFound(err) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		logger.Error.Printf("Failed to open file %d: %v", uid, err)
		http.Error(w, "failed to open file", http.StatusInternalServerError)
		return
	}
	defer content.Close()

	if !f.IsImage() {
		http.NotFound(w, r)
		return
	}

	contentType := mime.TypeByExtension(path.Ext(f.Name()))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(f.Size(), 10))
	w.Header().Set("Cache-Control", "private, max-age=300")
	if _, err := io.Copy(w, content); err != nil {
		logger.Debug.Printf("Failed to stream file %d: %v", uid, err)
	}
}
