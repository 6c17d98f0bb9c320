package mimemsg

import (
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnvelope() Envelope {
	return Envelope{
		From:      mail.Address{Name: "Sam Haque, Commercial Landers Ltd", Address: "sam@example.com"},
		To:        mail.Address{Name: "Ada", Address: "ada@example.com"},
		Subject:   "Happy Birthday, Ada! 🎂",
		Date:      time.Date(2025, time.July, 14, 8, 0, 0, 0, time.UTC),
		MessageID: "abc@example.com",
	}
}

func TestBuild_PlainText(t *testing.T) {
	raw, err := Build(testEnvelope(), "Dear Ada, many happy returns.", "")
	require.NoError(t, err)

	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Happy Birthday, Ada! 🎂", subject)
	assert.Equal(t, "<abc@example.com>", msg.Header.Get("Message-ID"))

	from, err := msg.Header.AddressList("From")
	require.NoError(t, err)
	assert.Equal(t, "Sam Haque, Commercial Landers Ltd", from[0].Name)

	mediaType, _, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mediaType)

	body, err := io.ReadAll(quotedprintable.NewReader(msg.Body))
	require.NoError(t, err)
	assert.Equal(t, "Dear Ada, many happy returns.", string(body))
}

func TestBuild_Alternative(t *testing.T) {
	html := `<div style="font-family:sans-serif;padding:24px">Happy birthday, Ada!</div>`
	raw, err := Build(testEnvelope(), "Happy birthday, Ada!", html)
	require.NoError(t, err)

	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	var types, bodies []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		// multipart.Reader decodes quoted-printable parts transparently.
		b, err := io.ReadAll(p)
		require.NoError(t, err)
		types = append(types, p.Header.Get("Content-Type"))
		bodies = append(bodies, string(b))
	}
	assert.Equal(t, []string{"text/plain; charset=utf-8", "text/html; charset=utf-8"}, types)
	assert.Equal(t, []string{"Happy birthday, Ada!", html}, bodies)
}
