package credentials_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/credentials"
)

var _ = Describe("Resolve", func() {
	var mgr *credentials.Manager

	BeforeEach(func() {
		var err error
		mgr, err = credentials.NewManager(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		GinkgoT().Setenv("ANTHROPIC_API_KEY", "")
		GinkgoT().Setenv("OPENAI_API_KEY", "")
	})

	It("prefers the environment variable", func() {
		Expect(mgr.SetKey("anthropic", "sk-ant-stored")).To(Succeed())
		GinkgoT().Setenv("ANTHROPIC_API_KEY", "sk-ant-env")

		key, err := mgr.Resolve("anthropic")
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal("sk-ant-env"))
	})

	It("falls back to the stored key", func() {
		Expect(mgr.SetKey("openai", "sk-openai-stored")).To(Succeed())

		key, err := mgr.Resolve("openai")
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal("sk-openai-stored"))
	})

	It("reports a missing key", func() {
		_, err := mgr.Resolve("openai")
		Expect(err).To(MatchError(credentials.ErrNoKey))
		Expect(err.Error()).To(ContainSubstring("OPENAI_API_KEY"))
	})
})

var _ = Describe("LoadDotEnv", func() {
	It("loads the nearest .env walking up from the directory", func() {
		root := GinkgoT().TempDir()
		nested := filepath.Join(root, "a", "b")
		Expect(os.MkdirAll(nested, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(root, ".env"), []byte("RELAY_DOTENV_TEST=from-file\n"), 0o600)).To(Succeed())

		GinkgoT().Setenv("RELAY_DOTENV_TEST", "")
		Expect(os.Unsetenv("RELAY_DOTENV_TEST")).To(Succeed())

		path, err := credentials.LoadDotEnv(nested)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(root, ".env")))
		Expect(os.Getenv("RELAY_DOTENV_TEST")).To(Equal("from-file"))
	})

	It("does not override variables that are already set", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, ".env"), []byte("RELAY_DOTENV_TEST=from-file\n"), 0o600)).To(Succeed())
		GinkgoT().Setenv("RELAY_DOTENV_TEST", "from-env")

		_, err := credentials.LoadDotEnv(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Getenv("RELAY_DOTENV_TEST")).To(Equal("from-env"))
	})
})

var _ = Describe("Redact", func() {
	It("keeps the ends of long keys", func() {
		Expect(credentials.Redact("sk-ant-api03-abcdefghijkl")).To(Equal("sk-a...ijkl"))
	})

	It("masks short keys entirely", func() {
		Expect(credentials.Redact("short")).To(Equal("*****"))
		Expect(credentials.Redact("")).To(BeEmpty())
	})
})
