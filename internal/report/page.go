package report

import (
	"bytes"
	"html/template"
)

type pageData struct {
	Lang  string
	Title string
	Body  template.HTML
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            line-height: 1.6;
            background-color: #f9f9f9;
            color: #333;
            max-width: 900px;
            margin: 20px auto;
            padding: 25px;
            border: 1px solid #ddd;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.05);
        }
        h1, h2, h3 {
            border-bottom: 2px solid #eee;
            padding-bottom: 5px;
            color: #2c3e50;
        }
        h1 { font-size: 2em; }
        h2 { font-size: 1.5em; }
        h3 { font-size: 1.2em; }
        .chart-container {
            margin: 30px 0;
            padding: 15px;
            border: 1px solid #e0e0e0;
            border-radius: 5px;
            background-color: #fff;
            text-align: center;
        }
        img {
            max-width: 100%;
            height: auto;
            border-radius: 4px;
        }
        .caption {
            font-size: 0.9em;
            font-style: italic;
            color: #777;
            margin-top: 10px;
        }
        p { margin-bottom: 15px; }
        ul, ol { padding-left: 30px; }
        li { margin-bottom: 5px; }
        pre {
            background-color: #282c34;
            color: #abb2bf;
            padding: 15px;
            border-radius: 5px;
            overflow-x: auto;
        }
        code {
            font-family: "SFMono-Regular", Consolas, "Liberation Mono", Menlo, monospace;
            font-size: 0.95em;
        }
        table {
            width: 100%;
            border-collapse: collapse;
            margin-bottom: 20px;
            border: 1px solid #ccc;
        }
        th, td {
            padding: 12px;
            border: 1px solid #ccc;
            text-align: left;
        }
        th {
            background-color: #f2f2f2;
            font-weight: bold;
        }
        tr:nth-child(even) {
            background-color: #f9f9f9;
        }
    </style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

func renderPage(lang, title, body string) ([]byte, error) {
	if lang == "" {
		lang = "en"
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, pageData{Lang: lang, Title: title, Body: template.HTML(body)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
