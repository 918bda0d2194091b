package templates

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/bnema/reencoder/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// Dashboard renders the status page. The inline script keeps the counters
// current from /events.
func Dashboard(st domain.Status, history *domain.History) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		b.WriteString(`<title>reencoder</title><style>`)
		b.WriteString(dashboardCSS)
		b.WriteString(`</style></head><body><main>`)
		b.WriteString(`<h1>reencoder</h1>`)

		writeStatus(&b, st)
		if history != nil {
			writeScans(&b, history.Scans)
			writeInstalls(&b, history.Installs)
		}

		b.WriteString(`</main><script>`)
		b.WriteString(dashboardJS)
		b.WriteString(`</script></body></html>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeStatus(b *strings.Builder, st domain.Status) {
	root := st.Root
	if root == "" {
		root = "(none)"
	}
	state := "idle"
	if st.Scanning {
		state = "scanning"
	}

	b.WriteString(`<section><h2>Status</h2><dl>`)
	row(b, "Root", "root", root)
	row(b, "State", "state", state)
	row(b, "Total Files", "total_files", fmt.Sprint(st.TotalFiles))
	row(b, "Scanned Files", "scanned_files", fmt.Sprint(st.ScannedFiles))
	row(b, "Files To Convert", "queued_jobs", fmt.Sprint(st.QueuedJobs))
	row(b, "In Flight", "in_flight", fmt.Sprint(st.InFlight))
	row(b, "Installed", "installed", fmt.Sprint(st.Installed))
	row(b, "Probe Failures", "probe_failures", fmt.Sprint(st.ProbeFailures))
	row(b, "Library Size", "total_bytes", domain.FormatSize(st.TotalBytes))
	row(b, "Queued Duration", "total_duration", domain.FormatDuration(st.TotalDuration))
	b.WriteString(`</dl></section>`)
}

func row(b *strings.Builder, label, id, value string) {
	fmt.Fprintf(b, `<dt>%s</dt><dd id="%s">%s</dd>`,
		templ.EscapeString(label), templ.EscapeString(id), templ.EscapeString(value))
}

func writeScans(b *strings.Builder, scans []domain.ScanRecord) {
	b.WriteString(`<section><h2>Recent scans</h2>`)
	if len(scans) == 0 {
		b.WriteString(`<p class="empty">No scans recorded.</p></section>`)
		return
	}
	b.WriteString(`<table><thead><tr><th>Started</th><th>Root</th><th>Files</th><th>To convert</th><th>Failures</th><th>Outcome</th></tr></thead><tbody>`)
	for _, s := range scans {
		fmt.Fprintf(b, `<tr><td>%s</td><td>%s</td><td>%d</td><td>%d</td><td>%d</td><td>%s</td></tr>`,
			formatTime(s.StartedAt),
			templ.EscapeString(s.Root),
			s.TotalFiles, s.JobsFound, s.ProbeFailures,
			templ.EscapeString(scanOutcome(s)))
	}
	b.WriteString(`</tbody></table></section>`)
}

func writeInstalls(b *strings.Builder, installs []domain.InstallRecord) {
	b.WriteString(`<section><h2>Recent installs</h2>`)
	if len(installs) == 0 {
		b.WriteString(`<p class="empty">Nothing installed yet.</p></section>`)
		return
	}
	b.WriteString(`<table><thead><tr><th>Installed</th><th>Path</th><th>Size</th><th>Claimed</th></tr></thead><tbody>`)
	for _, in := range installs {
		claimed := "yes"
		if !in.Claimed {
			claimed = "no"
		}
		fmt.Fprintf(b, `<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
			formatTime(in.InstalledAt),
			templ.EscapeString(in.RelPath),
			templ.EscapeString(domain.FormatSize(in.Size)),
			claimed)
	}
	b.WriteString(`</tbody></table></section>`)
}

func scanOutcome(s domain.ScanRecord) string {
	switch {
	case s.Superseded:
		return "superseded"
	case s.ErrorMessage != "":
		return "failed: " + s.ErrorMessage
	case s.FinishedAt == nil:
		return "running"
	default:
		return "finished"
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

const dashboardCSS = `body{font-family:system-ui,sans-serif;margin:0;background:#111;color:#eee}
main{max-width:960px;margin:0 auto;padding:1.5rem}
h1{font-size:1.4rem}h2{font-size:1.1rem;margin-top:2rem}
dl{display:grid;grid-template-columns:max-content 1fr;gap:.3rem 1.5rem}
dt{color:#999}dd{margin:0;font-variant-numeric:tabular-nums}
table{width:100%;border-collapse:collapse;font-size:.9rem}
th,td{text-align:left;padding:.3rem .5rem;border-bottom:1px solid #333}
.empty{color:#777}`

const dashboardJS = `(function(){
if(!window.EventSource)return;
var fmtSize=function(n){var u=["B","KB","MB","GB","TB"],i=0;while(n>=1024&&i<u.length-1){n/=1024;i++}return i?n.toFixed(1)+" "+u[i]:n+" B"};
var set=function(id,v){var el=document.getElementById(id);if(el)el.textContent=v};
var es=new EventSource("/events");
var apply=function(e){var s=JSON.parse(e.data);if(s.status)s=s.status;
set("root",s.root||"(none)");set("state",s.scanning?"scanning":"idle");
set("total_files",s.total_files);set("scanned_files",s.scanned_files);
set("queued_jobs",s.queued_jobs);set("in_flight",s.in_flight);
set("installed",s.installed);set("probe_failures",s.probe_failures);
set("total_bytes",fmtSize(s.total_bytes))};
["status","scan_started","scan_finished","claimed","installed"].forEach(function(t){es.addEventListener(t,apply)});
})();`
