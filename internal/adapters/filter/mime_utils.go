package filter

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

const noTextContent = "[No text content found in multipart message]"

// headerDecoder decodes RFC 2047 encoded words in any charset the WHATWG
// encoding index knows about
var headerDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// decodeEncodedHeader decodes a header value that may contain encoded words
func decodeEncodedHeader(value string) (string, error) {
	return headerDecoder.DecodeHeader(value)
}

// extractTextFromMessage extracts the text content from an email message.
// For multipart messages, it collects the text/plain parts.
func extractTextFromMessage(msg *mail.Message) (string, error) {
	header := textproto.MIMEHeader(msg.Header)

	mediaType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return readTextPart(msg.Body, header)
	}

	boundary, ok := params["boundary"]
	if !ok {
		bodyBytes, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(bodyBytes), nil
	}

	var textContent bytes.Buffer
	if err := collectTextParts(multipart.NewReader(msg.Body, boundary), &textContent); err != nil && textContent.Len() == 0 {
		return "", err
	}

	if textContent.Len() > 0 {
		return textContent.String(), nil
	}
	return noTextContent, nil
}

// collectTextParts appends every text/plain part, descending into nested multiparts
func collectTextParts(mr *multipart.Reader, out *bytes.Buffer) error {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			// Parts without a usable Content-Type default to text/plain
			mediaType = "text/plain"
		}

		switch {
		case mediaType == "text/plain":
			text, err := readTextPart(part, part.Header)
			if err != nil {
				continue
			}
			out.WriteString(text)
			out.WriteString("\n")
		case strings.HasPrefix(mediaType, "multipart/") && params["boundary"] != "":
			if err := collectTextParts(multipart.NewReader(part, params["boundary"]), out); err != nil {
				return err
			}
		}
	}
}

// readTextPart reads a single part, undoing its transfer encoding and charset
func readTextPart(r io.Reader, header textproto.MIMEHeader) (string, error) {
	switch strings.ToLower(strings.TrimSpace(header.Get("Content-Transfer-Encoding"))) {
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	}

	if _, params, err := mime.ParseMediaType(header.Get("Content-Type")); err == nil {
		if charset := params["charset"]; charset != "" && !strings.EqualFold(charset, "utf-8") && !strings.EqualFold(charset, "us-ascii") {
			if decoded, err := charsetReader(charset, r); err == nil {
				r = decoded
			}
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
