package output

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{if .Name}}{{.Name}}{{else}}Test Report{{end}}</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; margin: 0; background: #f5f6f8; color: #222; }
  header { background: #1f2933; color: #fff; padding: 20px 32px; }
  header h1 { margin: 0 0 4px 0; font-size: 22px; }
  header .meta { color: #9aa5b1; font-size: 13px; }
  main { padding: 24px 32px; }
  .cards { display: flex; gap: 16px; margin-bottom: 24px; flex-wrap: wrap; }
  .card { background: #fff; border-radius: 6px; padding: 16px 20px; min-width: 120px; box-shadow: 0 1px 2px rgba(0,0,0,.08); }
  .card .value { font-size: 26px; font-weight: 600; }
  .card .label { font-size: 12px; color: #616e7c; text-transform: uppercase; }
  .bar { display: flex; height: 10px; border-radius: 5px; overflow: hidden; margin-bottom: 24px; background: #e4e7eb; }
  .bar .passed { background: #3ebd93; }
  .bar .failed { background: #ef4e4e; }
  .bar .skipped { background: #f7c948; }
  table { border-collapse: collapse; width: 100%; background: #fff; margin-bottom: 24px; }
  th, td { text-align: left; padding: 8px 12px; border-bottom: 1px solid #e4e7eb; font-size: 13px; }
  details.test { background: #fff; border-left: 4px solid #cbd2d9; margin-bottom: 8px; border-radius: 4px; }
  details.test.passed { border-left-color: #3ebd93; }
  details.test.failed { border-left-color: #ef4e4e; }
  details.test.skipped { border-left-color: #f7c948; }
  details.test summary { padding: 10px 14px; cursor: pointer; display: flex; justify-content: space-between; }
  details.test .body { padding: 0 14px 14px 14px; }
  .status { font-weight: 600; text-transform: uppercase; font-size: 11px; }
  .description { color: #52606d; font-size: 13px; margin: 0 0 8px 0; padding-left: 18px; }
  .failure { background: #ffe3e3; color: #8a041a; padding: 8px; white-space: pre-wrap; font-family: monospace; font-size: 12px; }
  .log td.level { font-weight: 600; }
  .log tr.fail td.level, .log tr.error td.level { color: #cf1124; }
  .log tr.pass td.level { color: #0c6b58; }
  .log tr.warn td.level, .log tr.skip td.level { color: #cb6e17; }
  .evidence img { max-width: 480px; border: 1px solid #cbd2d9; margin-top: 6px; }
  .tag { background: #e4e7eb; border-radius: 3px; padding: 1px 6px; font-size: 11px; margin-left: 4px; }
  footer { color: #9aa5b1; font-size: 12px; padding: 0 32px 24px 32px; }
</style>
</head>
<body>
<header>
  <h1>{{if .Name}}{{.Name}}{{else}}Test Report{{end}}</h1>
  <div class="meta">{{.Time}}{{if .Environment}} &middot; {{.Environment}}{{end}} &middot; {{printf "%.0f" .Duration}}ms</div>
</header>
<main>
  <div class="cards">
    <div class="card"><div class="value">{{.Summary.Total}}</div><div class="label">Total</div></div>
    <div class="card"><div class="value">{{.Summary.Passed}}</div><div class="label">Passed</div></div>
    <div class="card"><div class="value">{{.Summary.Failed}}</div><div class="label">Failed</div></div>
    <div class="card"><div class="value">{{.Summary.Skipped}}</div><div class="label">Skipped</div></div>
    <div class="card"><div class="value">{{.Summary.Evidence}}</div><div class="label">Evidence</div></div>
    <div class="card"><div class="value">{{printf "%.0f" .P95}}ms</div><div class="label">p95</div></div>
    {{if .Leaked}}<div class="card"><div class="value">{{.Leaked}}</div><div class="label">Unfinished</div></div>{{end}}
  </div>
  <div class="bar">
    <div class="passed" style="width: {{printf "%.2f" .PassedPercent}}%"></div>
    <div class="failed" style="width: {{printf "%.2f" .FailedPercent}}%"></div>
    <div class="skipped" style="width: {{printf "%.2f" .SkippedPercent}}%"></div>
  </div>
  {{if .Categories}}
  <table>
    <thead><tr><th>Category</th><th>Total</th><th>Passed</th><th>Failed</th><th>Skipped</th></tr></thead>
    <tbody>
    {{range .Categories}}<tr><td>{{.Name}}</td><td>{{.Total}}</td><td>{{.Passed}}</td><td>{{.Failed}}</td><td>{{.Skipped}}</td></tr>
    {{end}}
    </tbody>
  </table>
  {{end}}
  {{range .Tests}}
  <details class="test {{.StatusClass}}"{{if eq .Status "failed"}} open{{end}}>
    <summary>
      <span>{{.Name}}{{range .Categories}}<span class="tag">{{.}}</span>{{end}}</span>
      <span><span class="status">{{.Status}}</span> &middot; {{printf "%.0f" .Duration}}ms{{if .Worker}} &middot; worker {{.Worker}}{{end}}</span>
    </summary>
    <div class="body">
      {{if .Description}}<ul class="description">{{range .Description}}<li>{{.}}</li>{{end}}</ul>{{end}}
      {{if .Failure}}<div class="failure">{{.Failure}}</div>{{end}}
      {{if .Logs}}
      <table class="log">
        {{range .Logs}}<tr class="{{.Level}}">
          <td>{{.Time}}</td>
          <td class="level">{{.Level}}</td>
          <td>{{.Message}}{{if .LinkURL}} <a href="{{.LinkURL}}">{{if .LinkText}}{{.LinkText}}{{else}}{{.LinkURL}}{{end}}</a>{{end}}
            {{if .Evidence}}<div class="evidence"><a href="{{.Evidence}}"><img src="{{.Evidence}}" alt="evidence"></a></div>{{end}}
          </td>
        </tr>{{end}}
      </table>
      {{end}}
    </div>
  </details>
  {{end}}
</main>
<footer>p50 {{printf "%.0f" .P50}}ms &middot; p95 {{printf "%.0f" .P95}}ms &middot; p99 {{printf "%.0f" .P99}}ms{{if .Version}} &middot; hitreport {{.Version}}{{end}}</footer>
</body>
</html>
`
