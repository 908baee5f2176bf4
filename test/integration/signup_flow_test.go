// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/prometheus/client_golang/prometheus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gatehouse/gatehouse/internal/account"
	accountpg "github.com/gatehouse/gatehouse/internal/account/postgres"
	"github.com/gatehouse/gatehouse/internal/filter"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/pow"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/internal/web"
)

// solveMaxAttempts is generous for the low difficulty used in tests.
const solveMaxAttempts = 1 << 24

var _ = Describe("Signup flow", Ordered, func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		container *postgres.PostgresContainer
		srv       *web.Server
		baseURL   string
		client    *http.Client
	)

	BeforeAll(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 3*time.Minute)

		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("gatehouse_test"),
			postgres.WithUsername("gatehouse"),
			postgres.WithPassword("gatehouse"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err := container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		pool, err := store.Connect(ctx, connStr)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(pool.Close)

		rules, err := filter.Compile(filter.Config{})
		Expect(err).NotTo(HaveOccurred())

		challenges, err := pow.NewManager(pow.NewMemoryStore(), 8, time.Minute)
		Expect(err).NotTo(HaveOccurred())

		accounts, err := account.NewService(
			accountpg.NewUserRepository(pool),
			account.NewArgon2idHasher(),
			rules,
			challenges,
		)
		Expect(err).NotTo(HaveOccurred())

		metrics := observability.NewMetrics(prometheus.NewRegistry())
		srv, err = web.NewServer("127.0.0.1:0", accounts, challenges, metrics, nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = srv.Start()
		Expect(err).NotTo(HaveOccurred())
		baseURL = "http://" + srv.Addr()
	})

	AfterAll(func() {
		if srv != nil {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			Expect(srv.Stop(stopCtx)).To(Succeed())
		}
		if container != nil {
			Expect(container.Terminate(context.Background())).To(Succeed())
		}
		cancel()
	})

	BeforeEach(func() {
		// Fresh session per spec: the cookie jar carries the session cookie
		// so challenges stay bound to this client.
		jar, err := cookiejar.New(nil)
		Expect(err).NotTo(HaveOccurred())
		client = &http.Client{Jar: jar}
	})

	fetchChallenge := func() pow.Config {
		GinkgoHelper()
		resp, err := client.Get(baseURL + "/api/pow")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var cfg pow.Config
		Expect(json.NewDecoder(resp.Body).Decode(&cfg)).To(Succeed())
		Expect(cfg.Algorithm).To(Equal("sha256-leading-zero-bits"))
		return cfg
	}

	signup := func(nonce, username, password string) (*http.Response, string) {
		GinkgoHelper()
		body, err := json.Marshal(map[string]any{
			"pow": nonce,
			"creds": map[string]string{
				"username": username,
				"password": password,
			},
		})
		Expect(err).NotTo(HaveOccurred())

		resp, err := client.Post(baseURL+"/api/signup", "application/json", bytes.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp, string(respBody)
	}

	signin := func(username, password string) (*http.Response, string) {
		GinkgoHelper()
		body, err := json.Marshal(map[string]string{
			"username": username,
			"password": password,
		})
		Expect(err).NotTo(HaveOccurred())

		resp, err := client.Post(baseURL+"/api/signin", "application/json", bytes.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp, string(respBody)
	}

	It("creates an account after solving a challenge", func() {
		cfg := fetchChallenge()

		nonce, ok := pow.Solve(cfg, solveMaxAttempts)
		Expect(ok).To(BeTrue(), "could not solve challenge at difficulty %d", cfg.Difficulty)

		resp, _ := signup(nonce, "Alice", "correct horse battery staple")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("rejects signup without a challenge solution", func() {
		resp, body := signup("", "Bob", "hunter2hunter2")
		Expect(resp.StatusCode).To(Equal(http.StatusPaymentRequired))
		Expect(body).To(ContainSubstring("PoW required"))
	})

	It("rejects a replayed challenge solution", func() {
		cfg := fetchChallenge()
		nonce, ok := pow.Solve(cfg, solveMaxAttempts)
		Expect(ok).To(BeTrue())

		resp, _ := signup(nonce, "Carol", "correct horse battery staple")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		resp, body := signup(nonce, "Dave", "correct horse battery staple")
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(body).To(ContainSubstring("invalid credentials"))
	})

	It("rejects a duplicate username across case and confusables", func() {
		for _, username := range []string{"alice", "ALICE", "a1ice"} {
			cfg := fetchChallenge()
			nonce, ok := pow.Solve(cfg, solveMaxAttempts)
			Expect(ok).To(BeTrue())

			resp, body := signup(nonce, username, "another password")
			Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed),
				fmt.Sprintf("username %q should collide", username))
			Expect(body).To(ContainSubstring("username exists"))
		}
	})

	It("rejects an inadmissible username", func() {
		cfg := fetchChallenge()
		nonce, ok := pow.Solve(cfg, solveMaxAttempts)
		Expect(ok).To(BeTrue())

		resp, body := signup(nonce, "admin", "another password")
		Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
		Expect(body).To(ContainSubstring("some characters are not permitted"))
	})

	It("signs in with the stored credentials", func() {
		resp, _ := signin("Alice", "correct horse battery staple")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var identity *http.Cookie
		for _, c := range resp.Cookies() {
			if c.Name == "gatehouse-auth" {
				identity = c
			}
		}
		Expect(identity).NotTo(BeNil(), "signin should set the identity cookie")
		Expect(identity.MaxAge).To(BeNumerically(">", 0))
	})

	It("rejects signin with the wrong password", func() {
		resp, body := signin("Alice", "wrong password")
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(body).To(ContainSubstring("invalid credentials"))
	})

	It("signs out and clears the identity cookie", func() {
		resp, err := client.Post(baseURL+"/api/signout", "application/json", nil)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(Equal("You are successfully signed out"))

		var identity *http.Cookie
		for _, c := range resp.Cookies() {
			if c.Name == "gatehouse-auth" {
				identity = c
			}
		}
		Expect(identity).NotTo(BeNil())
		Expect(identity.MaxAge).To(BeNumerically("<", 0))
	})
})
