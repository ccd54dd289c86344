package ocr

import (
	"fmt"
	"html"
	"strings"
)

const errorNotice = `
        <div style="position:fixed;top:20px;right:20px;padding:10px 15px;background:#ff4444;color:white;
        border-radius:6px;box-shadow:0 2px 6px rgba(0,0,0,0.2);z-index:9999;animation:fadeOut 5s forwards">
            OCR failed: %s
        </div>
        <style>@keyframes fadeOut {
            0%% {opacity:1;}
            80%% {opacity:1;}
            100%% {opacity:0;display:none;}
        }</style>
        `

const extractedText = `<div><h3>OCR Extracted Text</h3><p>%s</p></div>`

var lineBreaks = strings.NewReplacer("\r\n", "<br>", "\n", "<br>")

// HTML renders the result as the extracted text fragment or as a
// self-dismissing error notice. ErrorMessage is expected to be safe markup.
func (r Result) HTML() string {
	if !r.Success {
		return fmt.Sprintf(errorNotice, r.ErrorMessage)
	}
	return fmt.Sprintf(extractedText, lineBreaks.Replace(html.EscapeString(r.Text)))
}
