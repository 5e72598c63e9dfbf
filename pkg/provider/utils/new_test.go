package providerutils_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/config"
	"github.com/papercomputeco/factory/pkg/logger"
	"github.com/papercomputeco/factory/pkg/provider"
	providerutils "github.com/papercomputeco/factory/pkg/provider/utils"
)

var _ = Describe("NewRegistry", func() {
	var cfg config.ProvidersConfig

	BeforeEach(func() {
		cfg = config.NewDefaultConfig().Providers
	})

	It("registers every known provider", func() {
		r, err := providerutils.NewRegistry(&providerutils.NewRegistryOpts{
			Config: cfg,
			Logger: logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		for _, n := range provider.Names() {
			_, ok := r.Get(n)
			Expect(ok).To(BeTrue(), string(n))
		}
	})

	It("configures keyed providers only when a key is present", func() {
		r, err := providerutils.NewRegistry(&providerutils.NewRegistryOpts{
			Config: cfg,
			Keys:   map[string]string{"anthropic": "sk-ant-test"},
			Logger: logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Configured(provider.Anthropic)).To(BeTrue())
		Expect(r.Configured(provider.OpenAI)).To(BeFalse())
		Expect(r.Configured(provider.OpenRouter)).To(BeFalse())
	})

	It("rejects malformed timeouts", func() {
		cfg.Timeouts = map[string]string{"anthropic": "soon"}
		_, err := providerutils.NewRegistry(&providerutils.NewRegistryOpts{Config: cfg, Logger: logger.Nop()})
		Expect(err).To(MatchError(ContainSubstring("providers.timeouts.anthropic")))
	})

	It("rejects timeouts for unknown providers", func() {
		cfg.Timeouts = map[string]string{"mistral": "10s"}
		_, err := providerutils.NewRegistry(&providerutils.NewRegistryOpts{Config: cfg, Logger: logger.Nop()})
		Expect(err).To(MatchError(ContainSubstring("unknown provider")))
	})
})
