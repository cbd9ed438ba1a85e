// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

//go:build integration

package sync_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/gridfall/gridfall/internal/authority"
	"github.com/gridfall/gridfall/internal/ecs"
	"github.com/gridfall/gridfall/internal/game"
)

var _ = Describe("Optimistic movement", func() {
	var env *testEnv
	ctx := context.Background()

	BeforeEach(func() {
		env = newTestEnv()
		env.presentAt(0, 0)
	})

	It("wraps a negative step, shows the override, then settles to the commit", func() {
		release := env.fake.HoldNext(authority.OpMove)

		done := make(chan error, 1)
		go func() { done <- env.caller.MoveBy(ctx, -1, 0) }()

		// The speculative position is visible while the submission is in flight.
		Eventually(func() int {
			pos, _ := env.comp.Position.Get(env.actor)
			return pos.X
		}).WithTimeout(time.Second).Should(Equal(9))

		pos, ok := env.comp.Position.Get(env.actor)
		Expect(ok).To(BeTrue())
		Expect(pos).To(Equal(game.Position{X: 9, Y: 0, PrevX: 0, PrevY: 0}))

		// The authority commits the settled position, masked until release.
		Expect(env.fake.Commit(game.TablePosition, env.actor, game.Position{X: 9, Y: 0, PrevX: 0, PrevY: 0})).To(Succeed())

		release()
		Expect(<-done).To(Succeed())

		pos, _ = env.comp.Position.Get(env.actor)
		Expect(pos.X).To(Equal(9))
		Expect(env.comp.Position.OverrideDepth(env.actor)).To(BeZero(), "override must be gone after settlement")
	})

	It("notifies subscribers for both the override and the commit, in order", func() {
		changes, cancel, err := env.comp.Store.Subscribe(game.TablePosition)
		Expect(err).NotTo(HaveOccurred())
		defer cancel()

		Expect(env.caller.MoveBy(ctx, 1, 0)).To(Succeed())

		var sources []ecs.ChangeSource
		for len(changes) > 0 {
			sources = append(sources, (<-changes).Source)
		}
		// Override add, then override remove.
		Expect(len(sources)).To(BeNumerically(">=", 2))
		for _, s := range sources {
			Expect(s).To(Equal(ecs.SourceOverride))
		}
	})
})

var _ = Describe("Racing battle initiation", func() {
	var env *testEnv
	ctx := context.Background()

	BeforeEach(func() {
		env = newTestEnv()
		env.presentAt(5, 5)
		moloch := ecs.Entity("ent:moloch")
		Expect(env.fake.Commit(game.TableMoloch, moloch, game.Moloch{Value: true})).To(Succeed())
		Expect(env.fake.Commit(game.TableHealth, moloch, game.Health{Value: 40})).To(Succeed())
		Expect(env.fake.Commit(game.TablePosition, moloch, game.Position{X: 5, Y: 6})).To(Succeed())
	})

	It("fails the second call against the first call's override", func() {
		release := env.fake.HoldNext(authority.OpInitiateBattle)

		firstDone := make(chan bool, 1)
		go func() {
			ok, err := env.caller.InitiateBattle(ctx)
			Expect(err).NotTo(HaveOccurred())
			firstDone <- ok
		}()

		Eventually(func() bool {
			b, ok := env.comp.Battle.Get(env.actor)
			return ok && b.Active
		}).WithTimeout(time.Second).Should(BeTrue())

		secondOK, err := env.caller.InitiateBattle(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(secondOK).To(BeFalse(), "second initiation must see the active override")
		Expect(env.fake.SubmissionsOf(authority.OpInitiateBattle)).To(HaveLen(1))

		release()
		Expect(<-firstDone).To(BeTrue())
		Expect(env.comp.Battle.OverrideDepth(env.actor)).To(BeZero())
	})
})

var _ = Describe("Attacking an empty cell", func() {
	var env *testEnv
	ctx := context.Background()

	BeforeEach(func() {
		env = newTestEnv()
		env.presentAt(0, 0)
	})

	It("warns and performs zero store writes and zero submissions", func() {
		changes, cancel, err := env.comp.Store.Subscribe("*")
		Expect(err).NotTo(HaveOccurred())
		defer cancel()

		Expect(env.caller.Attack(ctx, 3, 3)).To(Succeed())

		Expect(env.fake.Submissions()).To(BeEmpty())
		Expect(changes).To(BeEmpty(), "no store mutation may occur")
	})
})

var _ = Describe("Layered overrides under racing moves", func() {
	var env *testEnv
	ctx := context.Background()

	BeforeEach(func() {
		env = newTestEnv()
		env.presentAt(0, 0)
	})

	It("keeps the newer override visible when the older one is removed first", func() {
		releaseFirst := env.fake.HoldNext(authority.OpMove)
		releaseSecond := env.fake.HoldNext(authority.OpMove)

		first := make(chan error, 1)
		go func() { first <- env.caller.MoveTo(ctx, 1, 0, 0, 0) }()
		Eventually(func() int {
			pos, _ := env.comp.Position.Get(env.actor)
			return pos.X
		}).WithTimeout(time.Second).Should(Equal(1))

		second := make(chan error, 1)
		go func() { second <- env.caller.MoveTo(ctx, 2, 0, 1, 0) }()
		Eventually(func() int {
			pos, _ := env.comp.Position.Get(env.actor)
			return pos.X
		}).WithTimeout(time.Second).Should(Equal(2))

		// Settling the first call removes the older layer only.
		releaseFirst()
		Expect(<-first).To(Succeed())
		pos, _ := env.comp.Position.Get(env.actor)
		Expect(pos.X).To(Equal(2), "newer override must stay visible")

		releaseSecond()
		Expect(<-second).To(Succeed())
		Expect(env.comp.Position.OverrideDepth(env.actor)).To(BeZero())
	})
})
