package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/llm/provider"
	"github.com/papercomputeco/relay/pkg/llm/provider/openai"
)

var _ = Describe("OpenAI Provider", func() {
	var p provider.Provider

	BeforeEach(func() {
		p = openai.New()
	})

	Describe("Name", func() {
		It("returns 'openai'", func() {
			Expect(p.Name()).To(Equal("openai"))
		})
	})

	Describe("ParseRequest", func() {
		It("parses model and messages correctly", func() {
			payload := []byte(`{
				"model": "gpt-4o",
				"messages": [
					{"role": "system", "content": "You are terse."},
					{"role": "user", "content": "Hello!"}
				],
				"max_tokens": 100,
				"temperature": 0.5
			}`)

			req, err := p.ParseRequest(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Model).To(Equal("gpt-4o"))
			Expect(req.System).To(Equal("You are terse."))
			Expect(req.Messages).To(HaveLen(2))
			Expect(req.Messages[1].GetText()).To(Equal("Hello!"))
			Expect(*req.MaxTokens).To(Equal(100))
			Expect(*req.Temperature).To(Equal(0.5))
		})

		It("parses image_url content as an image block", func() {
			payload := []byte(`{
				"model": "gpt-4o",
				"messages": [{"role": "user", "content": [
					{"type": "text", "text": "What is this?"},
					{"type": "image_url", "image_url": {"url": "https://example.com/a.png"}}
				]}]
			}`)

			req, err := p.ParseRequest(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Messages[0].Content).To(HaveLen(2))
			Expect(req.Messages[0].Content[1].Type).To(Equal("image"))
		})

		It("stores the original payload in RawRequest", func() {
			payload := []byte(`{"model":"gpt-4o","messages":[]}`)
			req, err := p.ParseRequest(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect([]byte(req.RawRequest)).To(Equal(payload))
		})

		It("returns an error for invalid JSON", func() {
			_, err := p.ParseRequest([]byte(`not json`))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("NewUpstreamRequest", func() {
		It("builds a streaming chat completions request", func() {
			upstream := provider.Upstream{
				BaseURL: "https://api.openai.com",
				APIKey:  "sk-test",
				Headers: http.Header{"Openai-Organization": []string{"org-123"}},
			}

			req, err := p.NewUpstreamRequest(context.Background(), upstream, []byte(`{"model":"gpt-4o","messages":[]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Method).To(Equal(http.MethodPost))
			Expect(req.URL.String()).To(Equal("https://api.openai.com/v1/chat/completions"))
			Expect(req.Header.Get("Authorization")).To(Equal("Bearer sk-test"))
			Expect(req.Header.Get("OpenAI-Organization")).To(Equal("org-123"))
			Expect(req.Header.Get("x-api-key")).To(BeEmpty())

			body, err := io.ReadAll(req.Body)
			Expect(err).NotTo(HaveOccurred())

			var fields map[string]any
			Expect(json.Unmarshal(body, &fields)).To(Succeed())
			Expect(fields["stream"]).To(BeTrue())
		})
	})
})
