// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/svchook/svchook/internal/envstream"
	"github.com/svchook/svchook/internal/plugin"
)

// writeScript installs an executable shell script plugin into dir.
func writeScript(dir, name, body string) {
	GinkgoHelper()

	script := "#!/bin/sh\n" + body + "\n"
	Expect(os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755)).To(Succeed())
}

var _ = Describe("Hook dispatch with real worker processes", func() {
	var (
		ctx        context.Context
		cancel     context.CancelFunc
		pluginDir  string
		workDir    string
		dispatcher *plugin.Dispatcher
		registry   *plugin.Registry
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
		pluginDir = GinkgoT().TempDir()
		workDir = GinkgoT().TempDir()
	})

	AfterEach(func() {
		registry.Unload()
		cancel()
	})

	load := func() {
		GinkgoHelper()

		registry = plugin.NewRegistry(pluginDir)
		Expect(registry.Load(ctx)).To(Succeed())

		var err error
		dispatcher, err = plugin.NewDispatcher(registry,
			plugin.WithEnviron(envstream.OSEnviron{}),
		)
		Expect(err).NotTo(HaveOccurred())
	}

	It("runs plugins sequentially in name order", func() {
		order := filepath.Join(workDir, "order")
		for _, name := range []string{"30-third", "10-first", "20-second"} {
			writeScript(pluginDir, name, `echo "$(basename "$0")" >> `+order)
		}
		load()

		results, err := dispatcher.Run(ctx, "hook.start", "svc")
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))

		got, err := os.ReadFile(order)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(got)).To(Equal("10-first\n20-second\n30-third\n"))
	})

	It("passes the hook and value as worker arguments", func() {
		args := filepath.Join(workDir, "args")
		writeScript(pluginDir, "10-args", `echo "$1 $2" > `+args)
		load()

		_, err := dispatcher.Run(ctx, "hook.stop", "myservice")
		Expect(err).NotTo(HaveOccurred())

		got, err := os.ReadFile(args)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(got)).To(Equal("hook.stop myservice\n"))
	})

	It("applies set and unset records written to the channel", func() {
		GinkgoT().Setenv("SVCHOOK_IT_KEEP", "old")
		GinkgoT().Setenv("SVCHOOK_IT_DROP", "old")
		DeferCleanup(os.Unsetenv, "SVCHOOK_IT_KEEP")

		writeScript(pluginDir, "10-mutate",
			`printf 'SVCHOOK_IT_KEEP=new\0SVCHOOK_IT_DROP=\0' >&3`)
		load()

		results, err := dispatcher.Run(ctx, "hook.start", "svc")
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].Mutations).To(Equal(2))

		Expect(os.Getenv("SVCHOOK_IT_KEEP")).To(Equal("new"))
		_, present := os.LookupEnv("SVCHOOK_IT_DROP")
		Expect(present).To(BeFalse(), "empty value must remove the variable")
	})

	It("makes earlier mutations visible to later workers", func() {
		observed := filepath.Join(workDir, "observed")
		writeScript(pluginDir, "10-set", `printf 'SVCHOOK_IT_CHAIN=linked\0' >&3`)
		writeScript(pluginDir, "20-observe", `echo "$SVCHOOK_IT_CHAIN" > `+observed)
		DeferCleanup(os.Unsetenv, "SVCHOOK_IT_CHAIN")
		load()

		_, err := dispatcher.Run(ctx, "hook.start", "svc")
		Expect(err).NotTo(HaveOccurred())

		got, err := os.ReadFile(observed)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(got)).To(Equal("linked\n"))
	})

	It("captures a nonzero exit status without failing the dispatch", func() {
		ran := filepath.Join(workDir, "ran")
		writeScript(pluginDir, "10-fail", "exit 7")
		writeScript(pluginDir, "20-next", "touch "+ran)
		load()

		results, err := dispatcher.Run(ctx, "hook.start", "svc")
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
		Expect(results[0].ExitStatus).To(Equal(7))
		Expect(results[1].ExitStatus).To(Equal(0))

		Expect(ran).To(BeAnExistingFile(), "dispatch must continue past a failing plugin")
	})

	It("marks workers so nested dispatch is a no-op", func() {
		marker := filepath.Join(workDir, "guard")
		writeScript(pluginDir, "10-guard", `echo "$SVCHOOK_IN_PLUGIN" > `+marker)
		load()

		_, err := dispatcher.Run(ctx, "hook.start", "svc")
		Expect(err).NotTo(HaveOccurred())

		got, err := os.ReadFile(marker)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(got)).To(Equal("1\n"))
	})

	It("is not held open by backgrounded children that close the channel", func() {
		writeScript(pluginDir, "10-daemonish",
			`sleep 30 >/dev/null 2>&1 3>&- &
printf 'SVCHOOK_IT_BG=1\0' >&3`)
		DeferCleanup(os.Unsetenv, "SVCHOOK_IT_BG")
		load()

		start := time.Now()
		results, err := dispatcher.Run(ctx, "hook.start", "svc")
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].Mutations).To(Equal(1))
		Expect(time.Since(start)).To(BeNumerically("<", 10*time.Second),
			"the channel must reach end of stream when the worker exits, not when its children do")
	})

	It("skips malformed records but applies the rest of the stream", func() {
		writeScript(pluginDir, "10-mixed",
			`printf 'garbage\0SVCHOOK_IT_GOOD=yes\0' >&3`)
		DeferCleanup(os.Unsetenv, "SVCHOOK_IT_GOOD")
		load()

		results, err := dispatcher.Run(ctx, "hook.start", "svc")
		Expect(err).NotTo(HaveOccurred())
		Expect(results[0].Mutations).To(Equal(1))
		Expect(os.Getenv("SVCHOOK_IT_GOOD")).To(Equal("yes"))
	})
})
