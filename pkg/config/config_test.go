package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tablechat/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	writeConfig := func(data string) {
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())
	}

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads all config fields", func() {
			writeConfig(`version = 0

[client]
api_target = "http://remote:9000/api"
timeout = "30s"

[server]
listen = ":9000"
upload_dir = "/tmp/tables"
max_upload_mb = 10
session_ttl = "1h"

[assistant]
provider = "echo"
target = "http://gpu:11434"
model = "llama3"

[eventstream]
provider = "kafka"
brokers = "k1:9092,k2:9092"
topic = "turns"
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Client.APITarget).To(Equal("http://remote:9000/api"))
			Expect(cfg.Client.Timeout).To(Equal("30s"))
			Expect(cfg.Server.Listen).To(Equal(":9000"))
			Expect(cfg.Server.UploadDir).To(Equal("/tmp/tables"))
			Expect(cfg.Server.MaxUploadMB).To(Equal(uint(10)))
			Expect(cfg.Server.SessionTTL).To(Equal("1h"))
			Expect(cfg.Assistant.Provider).To(Equal("echo"))
			Expect(cfg.Assistant.Target).To(Equal("http://gpu:11434"))
			Expect(cfg.Assistant.Model).To(Equal("llama3"))
			Expect(cfg.EventStream.Provider).To(Equal("kafka"))
			Expect(cfg.BrokerList()).To(Equal([]string{"k1:9092", "k2:9092"}))
			Expect(cfg.EventStream.Topic).To(Equal("turns"))
		})

		It("fills in defaults for unset fields in a partial config", func() {
			writeConfig(`[assistant]
model = "llama3"
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Assistant.Model).To(Equal("llama3"))
			Expect(cfg.Assistant.Provider).To(Equal(defaults.Assistant.Provider))
			Expect(cfg.Client).To(Equal(defaults.Client))
			Expect(cfg.Server).To(Equal(defaults.Server))
			Expect(cfg.EventStream).To(Equal(defaults.EventStream))
		})

		It("returns error for malformed TOML", func() {
			writeConfig("not valid toml [[[")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).To(HaveOccurred())
			Expect(cfg).To(BeNil())
		})

		It("returns error for unsupported config version", func() {
			writeConfig("version = 99\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version")))
			Expect(cfg).To(BeNil())
		})
	})

	Describe("SaveConfig", func() {
		It("persists config to disk and loads it back", func() {
			cfg := config.NewDefaultConfig()
			cfg.Client.APITarget = "http://saved:1234/api"

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(cfg)).To(Succeed())

			info, err := os.Stat(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("returns error for nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(MatchError("cannot save nil config"))
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("round-trips every valid key", func() {
			values := map[string]string{
				"client.api_target":         "http://x/api",
				"client.timeout":            "10s",
				"server.listen":             ":1",
				"server.upload_dir":         "/data",
				"server.max_upload_mb":      "7",
				"server.session_ttl":        "2h",
				"assistant.provider":        "echo",
				"assistant.target":          "http://y",
				"assistant.model":           "m",
				"assistant.thinking_budget": "4096",
				"eventstream.provider":      "kafka",
				"eventstream.brokers":       "b:9092",
				"eventstream.topic":         "t",
			}
			Expect(values).To(HaveLen(len(config.ValidConfigKeys())))

			for key, value := range values {
				Expect(c.SetConfigValue(key, value)).To(Succeed(), key)
				got, err := c.GetConfigValue(key)
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(Equal(value), key)
			}
		})

		It("rejects unknown keys", func() {
			Expect(c.SetConfigValue("proxy.listen", ":1")).To(MatchError(ContainSubstring("unknown config key")))
			_, err := c.GetConfigValue("proxy.listen")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("rejects invalid durations and sizes", func() {
			Expect(c.SetConfigValue("client.timeout", "soon")).To(MatchError(ContainSubstring("client.timeout")))
			Expect(c.SetConfigValue("server.max_upload_mb", "-1")).To(HaveOccurred())
			Expect(c.SetConfigValue("assistant.thinking_budget", "lots")).To(MatchError(ContainSubstring("assistant.thinking_budget")))

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Client.Timeout).To(Equal(config.NewDefaultConfig().Client.Timeout))
		})
	})
})

var _ = Describe("Config helpers", func() {
	It("parses durations and sizes", func() {
		cfg := config.NewDefaultConfig()

		timeout, err := cfg.ClientTimeout()
		Expect(err).NotTo(HaveOccurred())
		Expect(timeout).To(Equal(5 * time.Minute))

		ttl, err := cfg.SessionTTL()
		Expect(err).NotTo(HaveOccurred())
		Expect(ttl).To(Equal(24 * time.Hour))

		Expect(cfg.MaxUploadBytes()).To(Equal(int64(50 * 1024 * 1024)))
	})

	It("treats an empty duration as zero", func() {
		cfg := &config.Config{}
		d, err := cfg.ClientTimeout()
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeZero())
	})

	It("drops blank broker entries", func() {
		cfg := &config.Config{EventStream: config.EventStreamConfig{Brokers: " a:1, ,b:2,"}}
		Expect(cfg.BrokerList()).To(Equal([]string{"a:1", "b:2"}))
	})

	It("lists keys in section order", func() {
		keys := config.ValidConfigKeys()
		Expect(keys[0]).To(Equal("client.api_target"))
		Expect(keys).To(ContainElement("eventstream.topic"))
		for _, k := range keys {
			Expect(config.IsValidConfigKey(k)).To(BeTrue())
		}
		Expect(config.IsValidConfigKey("nope")).To(BeFalse())
	})
})

var _ = Describe("PresetConfig", func() {
	It("returns the echo preset without a backend target", func() {
		cfg, err := config.PresetConfig("ECHO")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Assistant.Provider).To(Equal("echo"))
		Expect(cfg.Assistant.Target).To(BeEmpty())
	})

	It("returns the kafka preset", func() {
		cfg, err := config.PresetConfig("kafka")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.EventStream.Provider).To(Equal("kafka"))
	})

	It("points the openai preset at the hosted API", func() {
		cfg, err := config.PresetConfig("openai")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Assistant.Provider).To(Equal("openai"))
		Expect(cfg.Assistant.Target).To(Equal("https://api.openai.com"))
		Expect(cfg.Assistant.Model).To(Equal("gpt-4o"))
		Expect(cfg.Assistant.ThinkingBudget).To(BeZero())
	})

	It("turns on thinking in the anthropic preset", func() {
		cfg, err := config.PresetConfig("claude")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Assistant.Provider).To(Equal("anthropic"))
		Expect(cfg.Assistant.Target).To(Equal("https://api.anthropic.com"))
		Expect(cfg.Assistant.ThinkingBudget).To(BeEquivalentTo(2048))
	})

	It("rejects unknown presets", func() {
		_, err := config.PresetConfig("gemini")
		Expect(err).To(MatchError(ContainSubstring("unknown preset")))
	})

	It("exposes every preset name", func() {
		for _, name := range config.ValidPresetNames() {
			_, err := config.PresetConfig(name)
			Expect(err).NotTo(HaveOccurred())
		}
	})
})
