package factorycmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/adaptor/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/api"
	factorycmder "github.com/papercomputeco/factory/cmd/factory"
	"github.com/papercomputeco/factory/pkg/archive"
	blobinmemory "github.com/papercomputeco/factory/pkg/blob/inmemory"
	"github.com/papercomputeco/factory/pkg/embeddings/hash"
	"github.com/papercomputeco/factory/pkg/logger"
	"github.com/papercomputeco/factory/pkg/memory"
	"github.com/papercomputeco/factory/pkg/pipeline"
	"github.com/papercomputeco/factory/pkg/prompts"
	"github.com/papercomputeco/factory/pkg/provider"
	"github.com/papercomputeco/factory/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/factory/pkg/utils/test"
)

var _ = Describe("NewFactoryCmd", func() {
	It("registers every subcommand", func() {
		cmd := factorycmder.NewFactoryCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements(
			"serve", "brainstorm", "synthesize", "bootstrap", "research", "download",
			"memory", "prompts", "config", "auth", "init", "version",
		))
	})

	It("has the global flags", func() {
		cmd := factorycmder.NewFactoryCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})
})

var _ = Describe("Remote commands", func() {
	var (
		configDir string
		workDir   string
		origDir   string
		target    string
	)

	// run executes the root command against the test server and returns
	// stdout.
	run := func(args ...string) (string, error) {
		cmd := factorycmder.NewFactoryCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append(args, "--config-dir", configDir, "--api-target", target))
		err := cmd.Execute()
		return out.String(), err
	}

	runJSON := func(out any, args ...string) {
		GinkgoHelper()
		stdout, err := run(append(args, "--json")...)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal([]byte(stdout), out)).To(Succeed())
	}

	BeforeEach(func() {
		store := inmemory.NewDriver()

		anthropic := testutils.NewMockProvider(provider.Anthropic, "")
		anthropic.Fn = func(_ context.Context, prompt string) provider.Result {
			switch {
			case strings.Contains(prompt, "SYNTHESIZED_JSON="):
				return provider.OK(provider.Anthropic, `{"files": [{"path": "README.md", "content": "# tiny ci"}]}`, nil)
			case strings.Contains(prompt, "PROMPT="):
				return provider.OK(provider.Anthropic, `{"findings": ["runners are cheap"]}`, nil)
			default:
				return provider.OK(provider.Anthropic, `{"thesis": "ship it"}`, nil)
			}
		}
		registry := provider.NewRegistry(
			testutils.NewMockProvider(provider.Local, `{"ideas": ["queue", "runner"]}`),
			anthropic,
		)
		loader := prompts.NewLoader(store)

		engine, err := memory.NewEngine(memory.Config{
			Store:    store,
			Vectors:  testutils.NewMockVectorDriver(),
			Embedder: hash.NewEmbedder(32),
			Registry: registry,
			Prompts:  loader,
		})
		Expect(err).NotTo(HaveOccurred())

		pipe, err := pipeline.New(pipeline.Config{
			Registry: registry,
			Store:    store,
			Blobs:    blobinmemory.NewStore(),
			Memory:   engine,
			Prompts:  loader,
		})
		Expect(err).NotTo(HaveOccurred())

		server, err := api.NewServer(api.Config{DefaultOwner: "alice"}, pipe, engine, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		srv := httptest.NewServer(adaptor.FiberApp(server.App()))
		DeferCleanup(srv.Close)
		target = srv.URL

		configDir = GinkgoT().TempDir()
		workDir = GinkgoT().TempDir()
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(workDir)).To(Succeed())
		DeferCleanup(func() { Expect(os.Chdir(origDir)).To(Succeed()) })
	})

	It("drives a project from brainstorm to download", func() {
		var b pipeline.BrainstormOutput
		runJSON(&b, "brainstorm", "a tiny CI runner", "--constraints", `{"language":"go"}`)
		Expect(b.ProjectID).NotTo(BeEmpty())
		Expect(b.Results).To(HaveLen(1))

		var s pipeline.SynthesizeOutput
		runJSON(&s, "synthesize", b.ProjectID)
		Expect(s.Provider).To(Equal(provider.Anthropic))
		Expect(s.Synthesized).To(HaveKeyWithValue("thesis", "ship it"))

		var boot pipeline.BootstrapOutput
		runJSON(&boot, "bootstrap", b.ProjectID)
		Expect(boot.Stored).To(HaveLen(1))

		var r pipeline.ResearchOutput
		runJSON(&r, "research", b.ProjectID, "who else builds this?", "--prefer", "anthropic")
		Expect(r.Research).To(HaveKey("findings"))

		out, err := run("download", b.ProjectID)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("repo-pack-" + b.ProjectID + ".tar.gz"))

		f, err := os.Open(filepath.Join(workDir, "repo-pack-"+b.ProjectID+".tar.gz"))
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()
		files, err := archive.ReadTarGz(f)
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(1))
		Expect(files[0].Path).To(Equal("README.md"))
		Expect(string(files[0].Data)).To(Equal("# tiny ci"))
	})

	It("prints human readable brainstorm results", func() {
		out, err := run("brainstorm", "a tiny CI runner", "--name", "tiny-ci")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Project:"))
		Expect(out).To(ContainSubstring("local"))
	})

	It("rejects invalid constraints before calling the server", func() {
		_, err := run("brainstorm", "idea", "--constraints", "{not json")
		Expect(err).To(MatchError(ContainSubstring("valid JSON")))
	})

	It("surfaces server errors", func() {
		_, err := run("synthesize", "missing-project")
		Expect(err).To(MatchError(ContainSubstring("project not found")))

		_, err = run("synthesize", "missing-project", "--prefer", "mistral")
		Expect(err).To(HaveOccurred())
	})

	It("writes the archive to stdout with -o -", func() {
		var b pipeline.BrainstormOutput
		runJSON(&b, "brainstorm", "a tiny CI runner")
		runJSON(&pipeline.SynthesizeOutput{}, "synthesize", b.ProjectID)
		runJSON(&pipeline.BootstrapOutput{}, "bootstrap", b.ProjectID)

		out, err := run("download", b.ProjectID, "-o", "-")
		Expect(err).NotTo(HaveOccurred())

		files, err := archive.ReadTarGz(strings.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(1))
	})

	Describe("memory", func() {
		It("remembers, recalls, forgets and reconciles", func() {
			var remembered map[string]string
			runJSON(&remembered, "memory", "remember", "deploys run on fridays",
				"--kind", "fact", "--tags", "ops,release", "--salience", "0.9")
			id := remembered["id"]
			Expect(id).NotTo(BeEmpty())

			var items []memory.Recalled
			runJSON(&items, "memory", "recall", "when do deploys run", "-n", "3")
			Expect(items).To(HaveLen(1))
			Expect(items[0].ID).To(Equal(id))
			Expect(items[0].Kind).To(Equal(memory.KindFact))
			Expect(items[0].Tags).To(ConsistOf("ops", "release"))
			Expect(items[0].Salience).To(BeNumerically("~", 0.9, 1e-9))

			out, err := run("memory", "recall", "deploys")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("deploys run on fridays"))

			out, err = run("memory", "forget", id)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring(id))

			out, err = run("memory", "recall", "deploys")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("No memories found"))

			var res memory.ReconcileResult
			runJSON(&res, "memory", "reconcile", "--batch-size", "10")
			Expect(res.Removed).To(Equal(1))
		})

		It("reports when there is too little to reflect on", func() {
			out, err := run("memory", "reflect")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("not enough memories"))
		})

		It("surfaces policy blocks", func() {
			_, err := run("memory", "remember", "token ghp_"+strings.Repeat("a", 36))
			Expect(err).To(HaveOccurred())
		})
	})
})
