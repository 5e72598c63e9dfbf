package authcmder_test

import (
	"bytes"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/factory/cmd/factory/auth"
	"github.com/papercomputeco/factory/pkg/credentials"
)

// newCmd mirrors the persistent --config-dir flag the root command adds.
func newCmd(out *bytes.Buffer, args ...string) *cobra.Command {
	cmd := authcmder.NewAuthCmd()
	cmd.SetOut(out)
	cmd.PersistentFlags().String("config-dir", "", "Override path to .factory/ config directory")
	cmd.SetArgs(args)
	return cmd
}

var _ = Describe("Auth Command", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "factory-auth-test-*")
		Expect(err).NotTo(HaveOccurred())
		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("NewAuthCmd", func() {
		It("creates a command with expected properties", func() {
			cmd := authcmder.NewAuthCmd()
			Expect(cmd.Use).To(Equal("auth [provider]"))
			Expect(cmd.Short).NotTo(BeEmpty())
			Expect(cmd.Flags().Lookup("list")).NotTo(BeNil())
			Expect(cmd.Flags().Lookup("remove")).NotTo(BeNil())
		})
	})

	Describe("storing a key", func() {
		It("reads the key from piped input", func() {
			cmd := newCmd(out, "anthropic", "--config-dir", tmpDir)
			cmd.SetIn(bytes.NewBufferString("sk-ant-test\n"))
			Expect(cmd.Execute()).To(Succeed())

			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers["anthropic"].APIKey).To(Equal("sk-ant-test"))
			Expect(out.String()).To(ContainSubstring("ANTHROPIC_API_KEY"))
		})

		It("normalises the provider name", func() {
			cmd := newCmd(out, " Gemini ", "--config-dir", tmpDir)
			cmd.SetIn(bytes.NewBufferString("g-key\n"))
			Expect(cmd.Execute()).To(Succeed())

			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.ListProviders()).To(Equal([]string{"gemini"}))
		})

		It("rejects an empty key", func() {
			cmd := newCmd(out, "openai", "--config-dir", tmpDir)
			cmd.SetIn(bytes.NewBufferString("   \n"))
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("cannot be empty"))
		})

		It("fails when no input arrives", func() {
			cmd := newCmd(out, "openai", "--config-dir", tmpDir)
			cmd.SetIn(&bytes.Buffer{})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("no input"))
		})
	})

	Describe("--list flag", func() {
		It("shows no credentials when none stored", func() {
			cmd := newCmd(out, "--list", "--config-dir", tmpDir)
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No stored credentials"))
		})

		It("lists stored credentials with their variables", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())

			cmd := newCmd(out, "--list", "--config-dir", tmpDir)
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("openai"))
			Expect(out.String()).To(ContainSubstring("OPENAI_API_KEY"))
		})
	})

	Describe("--remove flag", func() {
		It("removes stored credentials", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())
			Expect(mgr.SetKey("grok", "xai-test")).To(Succeed())

			cmd := newCmd(out, "--remove", "openai", "--config-dir", tmpDir)
			Expect(cmd.Execute()).To(Succeed())

			Expect(mgr.ListProviders()).To(Equal([]string{"grok"}))
		})
	})

	Describe("provider argument validation", func() {
		It("returns error when no provider given", func() {
			cmd := newCmd(out)
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("provider argument required"))
		})

		It("returns error for unsupported provider", func() {
			cmd := newCmd(out, "ollama", "--config-dir", tmpDir)
			cmd.SetIn(bytes.NewBufferString("sk-test\n"))
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unsupported provider"))
		})
	})

	Describe("shell completion", func() {
		It("provides provider name completions", func() {
			cmd := authcmder.NewAuthCmd()
			completions, directive := cmd.ValidArgsFunction(cmd, []string{}, "")
			Expect(completions).To(ConsistOf("anthropic", "gemini", "grok", "openai", "openrouter"))
			Expect(directive).To(Equal(cobra.ShellCompDirectiveNoFileComp))
		})

		It("provides no completions after first arg", func() {
			cmd := authcmder.NewAuthCmd()
			completions, directive := cmd.ValidArgsFunction(cmd, []string{"openai"}, "")
			Expect(completions).To(BeNil())
			Expect(directive).To(Equal(cobra.ShellCompDirectiveNoFileComp))
		})
	})
})
