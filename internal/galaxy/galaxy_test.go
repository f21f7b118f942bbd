// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package galaxy_test

import (
	"context"
	"log/slog"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/freee/freee/internal/ability"
	"github.com/freee/freee/internal/formula"
	"github.com/freee/freee/internal/galaxy"
	"github.com/freee/freee/internal/referrable"
	"github.com/freee/freee/pkg/errutil"
)

const testScenario = `
name: Test Galaxy
turn: 3
abilities:
  - name: Research Bonus
    values: ["1"]
empires:
  - name: Terrans
  - name: Eee
systems:
  - name: Sol
    planets:
      - name: Earth
        owner: Terrans
        at: {x: 0, y: 0}
        abilities:
          - {name: Income, values: ["100"]}
          - {name: Research Bonus, values: ["5"]}
        facilities:
          - name: Mine
            abilities:
              - {name: Income, values: ["20"]}
    fleets:
      - name: Home Fleet
        owner: Terrans
        at: {x: 1, y: 1}
        abilities:
          - {name: Fleet Speed, values: ["1"]}
        ships:
          - name: Enterprise
            abilities:
              - {name: Fleet Speed, values: ["2"]}
            components:
              - name: Phaser
                abilities:
                  - {name: Combat Modifier, values: ["15"]}
          - name: Defiant
            abilities:
              - {name: Fleet Speed, values: ["3"]}
    ships:
      - name: Scout
        owner: Terrans
        at: {x: 2, y: 2}
        abilities:
          - {name: Turn Bonus, values: ["=turn * 10"]}
      - name: Watcher
        owner: Eee
        at: {x: 1, y: 1}
        abilities:
          - {name: Sensor, values: ["4"]}
  - name: Eee Prime
    planets:
      - name: Eee Homeworld
        owner: Eee
        at: {x: 0, y: 0}
        abilities:
          - {name: Research Bonus, values: ["7"]}
treaties:
  - giver: Eee
    receiver: Terrans
    rules: [Sensor]
`

func testRules() *ability.Ruleset {
	b := ability.NewRulesetBuilder()
	for _, r := range []ability.Rule{
		{Name: "Fleet Speed", Targets: ability.TargetFleet | ability.TargetShip, Stacking: ability.Add},
		{Name: "Sensor", Targets: ability.TargetShip | ability.TargetSector | ability.TargetStarSystem | ability.TargetGalaxy, Stacking: ability.TakeHighest},
		{Name: "Research Bonus", Targets: ability.TargetEmpire | ability.TargetPlanet | ability.TargetGalaxy, Stacking: ability.Add},
		{Name: "Combat Modifier", Targets: ability.TargetFleet | ability.TargetShip | ability.TargetComponent, Stacking: ability.TakeHighest},
		{Name: "Income", Targets: ability.TargetEmpire | ability.TargetPlanet | ability.TargetFacility, Stacking: ability.Add},
		{Name: "Turn Bonus", Targets: ability.TargetShip, Stacking: ability.Add},
	} {
		Expect(b.Add(r)).To(Succeed())
	}
	rs, err := b.Finalize()
	Expect(err).NotTo(HaveOccurred())
	return rs
}

func loadTestGalaxy(ctx context.Context) *galaxy.Galaxy {
	g, err := galaxy.LoadScenario(ctx, []byte(testScenario), testRules(), formula.NewEngine(),
		galaxy.WithLogger(slog.New(slog.DiscardHandler)))
	Expect(err).NotTo(HaveOccurred())
	return g
}

func find[T galaxy.Entity](g *galaxy.Galaxy, name string) T {
	e, ok := g.Find(name)
	Expect(ok).To(BeTrue(), "no object named %q", name)
	typed, ok := e.(T)
	Expect(ok).To(BeTrue(), "%q has type %T", name, e)
	return typed
}

func codeOf(err error) string {
	code, _ := errutil.Code(err)
	return code
}

var _ = Describe("Galaxy", func() {
	var (
		ctx      context.Context
		g        *galaxy.Galaxy
		terrans  *galaxy.Empire
		eee      *galaxy.Empire
		sol      *galaxy.StarSystem
		fleet    *galaxy.Fleet
		ship     *galaxy.Ship
		defiant  *galaxy.Ship
		scout    *galaxy.Ship
		watcher  *galaxy.Ship
		observed *ability.Engine
	)

	// valueOf returns value 1 of obj's ability called name.
	valueOf := func(eng *ability.Engine, obj ability.Object, name string, includeShared bool) (string, bool) {
		v, ok, err := eng.AbilityValue(ctx, obj, name, 1, includeShared, nil)
		Expect(err).NotTo(HaveOccurred())
		return v, ok
	}

	BeforeEach(func() {
		ctx = context.Background()
		g = loadTestGalaxy(ctx)
		terrans = find[*galaxy.Empire](g, "Terrans")
		eee = find[*galaxy.Empire](g, "Eee")
		sol = find[*galaxy.StarSystem](g, "Sol")
		fleet = find[*galaxy.Fleet](g, "Home Fleet")
		ship = find[*galaxy.Ship](g, "Enterprise")
		defiant = find[*galaxy.Ship](g, "Defiant")
		scout = find[*galaxy.Ship](g, "Scout")
		watcher = find[*galaxy.Ship](g, "Watcher")
		observed = g.Engine(terrans)
	})

	Describe("loading a scenario", func() {
		It("builds the described hierarchy", func() {
			Expect(g.Name()).To(Equal("Test Galaxy"))
			Expect(g.Turn()).To(Equal(3))
			Expect(g.EmpireList()).To(HaveLen(2))
			Expect(g.StarSystems()).To(HaveLen(2))
			Expect(fleet.Ships()).To(ConsistOf(ship, defiant))

			in, ok := ship.Fleet()
			Expect(ok).To(BeTrue())
			Expect(in).To(BeIdenticalTo(fleet))
			Expect(ship.Parent()).To(BeIdenticalTo(fleet))
			Expect(ship.Owner()).To(BeIdenticalTo(terrans))
			Expect(ship.Sector()).To(Equal(sol.Sector(galaxy.Coords{X: 1, Y: 1})))
			Expect(scout.Parent()).To(BeIdenticalTo(sol))
			Expect(sol.Parent()).To(BeIdenticalTo(g))
		})

		It("lists the top-level objects of a system as its children", func() {
			earth := find[*galaxy.Planet](g, "Earth")
			Expect(sol.Children()).To(ConsistOf(earth, fleet, scout, watcher))
		})

		It("gives every object a distinct ID", func() {
			seen := map[referrable.ID]bool{}
			for _, obj := range g.Objects() {
				Expect(seen[obj.ID()]).To(BeFalse())
				seen[obj.ID()] = true
			}
			Expect(seen).To(HaveLen(13))
		})
	})

	Describe("ability collection", func() {
		It("stacks the abilities a fleet gathers from its ships", func() {
			v, ok := valueOf(observed, fleet, "Fleet Speed", true)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("6"))

			v, ok = valueOf(observed, fleet, "Combat Modifier", true)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("15"))
		})

		It("passes fleet abilities down to its ships", func() {
			v, ok := valueOf(observed, ship, "Fleet Speed", false)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("3"))
		})

		It("gathers empire-wide abilities from owned planets and their facilities", func() {
			v, ok := valueOf(observed, terrans, "Income", false)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("120"))

			v, ok = valueOf(observed, terrans, "Research Bonus", false)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("5"))
		})

		It("stops galaxy-wide abilities at a level they cannot target", func() {
			earth := find[*galaxy.Planet](g, "Earth")
			v, ok := valueOf(observed, earth, "Research Bonus", false)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("5"), "Research Bonus cannot target Sol, so the galaxy's bonus never reaches Earth")
		})

		It("inherits galaxy-wide abilities through every level they can target", func() {
			b := ability.NewRulesetBuilder()
			Expect(b.Add(ability.Rule{
				Name:     "Research Bonus",
				Targets:  ability.TargetPlanet | ability.TargetStarSystem | ability.TargetGalaxy,
				Stacking: ability.Add,
			})).To(Succeed())
			rules, err := b.Finalize()
			Expect(err).NotTo(HaveOccurred())
			wide, err := galaxy.LoadScenario(ctx, []byte(testScenario), rules, nil,
				galaxy.WithLogger(slog.New(slog.DiscardHandler)))
			Expect(err).NotTo(HaveOccurred())

			earth := find[*galaxy.Planet](wide, "Earth")
			v, ok, err := wide.Engine(nil).AbilityValue(ctx, earth, "Research Bonus", 1, false, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("6"))
		})

		DescribeTable("collects a system's descendants the same way whatever the creation order",
			func(targets ability.Target, want int) {
				for _, fleetFirst := range []bool{true, false} {
					b := ability.NewRulesetBuilder()
					Expect(b.Add(ability.Rule{Name: "System Boost", Targets: targets, Stacking: ability.Add})).To(Succeed())
					rules, err := b.Finalize()
					Expect(err).NotTo(HaveOccurred())

					small := galaxy.New("Small", rules, galaxy.WithLogger(slog.New(slog.DiscardHandler)))
					sys, err := small.AddStarSystem("Vega")
					Expect(err).NotTo(HaveOccurred())
					var (
						f *galaxy.Fleet
						s *galaxy.Ship
					)
					if fleetFirst {
						f, err = small.AddFleet(sys, "F", galaxy.Coords{}, nil)
						Expect(err).NotTo(HaveOccurred())
						s, err = small.AddShip(sys, "S", galaxy.Coords{}, nil)
						Expect(err).NotTo(HaveOccurred())
					} else {
						s, err = small.AddShip(sys, "S", galaxy.Coords{}, nil)
						Expect(err).NotTo(HaveOccurred())
						f, err = small.AddFleet(sys, "F", galaxy.Coords{}, nil)
						Expect(err).NotTo(HaveOccurred())
					}
					Expect(small.JoinFleet(s, f)).To(Succeed())
					small.Grant(s, "System Boost", "5")

					Expect(sys.Children()).To(ConsistOf(f), "fleetFirst=%v", fleetFirst)
					abils, err := small.Engine(nil).Abilities(ctx, sys, nil)
					Expect(err).NotTo(HaveOccurred())
					Expect(abils).To(HaveLen(want), "fleetFirst=%v", fleetFirst)
				}
			},
			Entry("a fleet that cannot carry it stops it", ability.TargetShip|ability.TargetStarSystem, 0),
			Entry("a fleet that can carry it passes it on", ability.TargetShip|ability.TargetFleet|ability.TargetStarSystem, 1),
		)

		It("aggregates a system per empire", func() {
			v, ok, err := observed.CommonAbilityValue(ctx, sol, eee, "Sensor", 1, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("4"))

			_, ok, err = observed.CommonAbilityValue(ctx, sol, terrans, "Sensor", 1, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("evaluates scripted values against the turn they were granted on", func() {
			v, ok := valueOf(observed, scout, "Turn Bonus", false)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("30"))

			g.NewTurn(ctx)
			g.Grant(scout, "Turn Bonus", "=turn * 10")
			v, ok = valueOf(observed, scout, "Turn Bonus", false)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("70"))
		})
	})

	Describe("sharing", func() {
		It("shares abilities within the receiver's sector", func() {
			v, ok := valueOf(observed, ship, "Sensor", true)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("4"))

			_, ok = valueOf(observed, ship, "Sensor", false)
			Expect(ok).To(BeFalse())

			_, ok = valueOf(observed, scout, "Sensor", true)
			Expect(ok).To(BeFalse())
		})

		It("follows the giver's objects when they move", func() {
			_, ok := valueOf(observed, ship, "Sensor", true)
			Expect(ok).To(BeTrue())

			Expect(g.Move(watcher, sol, galaxy.Coords{X: 2, Y: 2})).To(Succeed())

			_, ok = valueOf(observed, ship, "Sensor", true)
			Expect(ok).To(BeFalse())
			v, ok := valueOf(observed, scout, "Sensor", true)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("4"))
		})

		It("stops when the treaty clause is withdrawn", func() {
			_, ok := valueOf(observed, ship, "Sensor", true)
			Expect(ok).To(BeTrue())

			Expect(g.Unshare(eee, terrans, "Sensor")).To(BeTrue())
			Expect(g.Unshare(eee, terrans, "Sensor")).To(BeFalse())

			_, ok = valueOf(observed, ship, "Sensor", true)
			Expect(ok).To(BeFalse())
		})

		It("rejects clauses for unknown rules", func() {
			err := g.Share(eee, terrans, "Warp Drive")
			Expect(err).To(HaveOccurred())
			Expect(codeOf(err)).To(Equal(galaxy.CodeUnknownRule))
		})

		It("reports received clauses", func() {
			clauses := terrans.ReceivedShareClauses()
			Expect(clauses).To(HaveLen(1))
			Expect(clauses[0].Rule.Name).To(Equal("Sensor"))
			Expect(clauses[0].Giver).To(BeIdenticalTo(eee))
			Expect(eee.ReceivedShareClauses()).To(BeEmpty())
		})
	})

	Describe("mutation", func() {
		It("recomputes after abilities are granted and revoked", func() {
			g.Grant(defiant, "Fleet Speed", "4")
			v, _ := valueOf(observed, fleet, "Fleet Speed", true)
			Expect(v).To(Equal("10"))

			Expect(g.Revoke(defiant, "Fleet Speed")).To(Equal(2))
			v, _ = valueOf(observed, fleet, "Fleet Speed", true)
			Expect(v).To(Equal("3"))

			Expect(g.Revoke(defiant, "Fleet Speed")).To(BeZero())
		})

		It("transfers a fleet together with its ships", func() {
			Expect(g.SetOwner(fleet, eee)).To(Succeed())
			Expect(fleet.Owner()).To(BeIdenticalTo(eee))
			Expect(ship.Owner()).To(BeIdenticalTo(eee))

			err := g.SetOwner(ship, terrans)
			Expect(codeOf(err)).To(Equal(galaxy.CodeInvalidMove))
		})

		It("moves ships with their fleet", func() {
			Expect(g.Move(fleet, sol, galaxy.Coords{X: 3, Y: 3})).To(Succeed())
			Expect(ship.Sector()).To(Equal(sol.Sector(galaxy.Coords{X: 3, Y: 3})))

			err := g.Move(ship, sol, galaxy.Coords{X: 0, Y: 0})
			Expect(codeOf(err)).To(Equal(galaxy.CodeInvalidMove))
		})

		It("detaches a ship that leaves its fleet", func() {
			Expect(g.LeaveFleet(ship)).To(Succeed())
			Expect(fleet.Ships()).To(ConsistOf(defiant))
			Expect(ship.Parent()).To(BeIdenticalTo(sol))
			Expect(ship.Sector()).To(Equal(sol.Sector(galaxy.Coords{X: 1, Y: 1})))

			v, _ := valueOf(observed, fleet, "Fleet Speed", true)
			Expect(v).To(Equal("4"))

			Expect(codeOf(g.LeaveFleet(ship))).To(Equal(galaxy.CodeInvalidMove))
			Expect(g.JoinFleet(ship, fleet)).To(Succeed())
			Expect(fleet.Ships()).To(ConsistOf(ship, defiant))
		})

		It("refuses to join a fleet in another sector", func() {
			Expect(codeOf(g.JoinFleet(scout, fleet))).To(Equal(galaxy.CodeInvalidMove))
		})

		It("drops disposed objects at once and sweeps them on the next turn", func() {
			id := ship.ID()
			g.Dispose(ship)

			Expect(fleet.Ships()).To(ConsistOf(defiant))
			v, _ := valueOf(observed, fleet, "Fleet Speed", true)
			Expect(v).To(Equal("4"))
			_, ok := valueOf(observed, fleet, "Combat Modifier", true)
			Expect(ok).To(BeFalse())

			_, err := g.Lookup(id)
			Expect(codeOf(err)).To(Equal(referrable.CodeDisposed))

			g.NewTurn(ctx)
			Expect(g.Turn()).To(Equal(4))
			_, err = g.Lookup(id)
			Expect(codeOf(err)).To(Equal(referrable.CodeNotFound))
			_, found := g.Find("Phaser")
			Expect(found).To(BeFalse())
		})

		It("copies a ship and its components under fresh IDs", func() {
			cp, err := g.CopyShip(ship, "Enterprise-A")
			Expect(err).NotTo(HaveOccurred())
			Expect(cp.ID()).NotTo(Equal(ship.ID()))
			Expect(cp.Parent()).To(BeIdenticalTo(sol))
			Expect(cp.Owner()).To(BeIdenticalTo(terrans))
			Expect(cp.Children()).To(HaveLen(1))
			Expect(ship.Children()).To(HaveLen(1))
			Expect(fleet.Ships()).To(ConsistOf(ship, defiant))

			v, _ := valueOf(observed, cp, "Fleet Speed", false)
			Expect(v).To(Equal("2"))
			v, _ = valueOf(observed, cp, "Combat Modifier", false)
			Expect(v).To(Equal("15"))

			found, err := g.Lookup(cp.ID())
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeIdenticalTo(cp))

			_, err = g.CopyShip(ship, "Defiant")
			Expect(codeOf(err)).To(Equal(galaxy.CodeDuplicateName))
		})

		It("rewrites provisional IDs without breaking relations", func() {
			shipID, fleetID := referrable.ID(1000), referrable.ID(1001)
			Expect(g.RemapIDs(map[referrable.ID]referrable.ID{
				ship.ID():  shipID,
				fleet.ID(): fleetID,
			})).To(Succeed())

			Expect(ship.ID()).To(Equal(shipID))
			Expect(fleet.ID()).To(Equal(fleetID))
			in, ok := ship.Fleet()
			Expect(ok).To(BeTrue())
			Expect(in).To(BeIdenticalTo(fleet))
			Expect(fleet.Ships()).To(ConsistOf(ship, defiant))

			found, err := g.Lookup(shipID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeIdenticalTo(ship))

			v, _ := valueOf(observed, fleet, "Fleet Speed", true)
			Expect(v).To(Equal("6"))
		})

		It("leaves everything as it was when a remapping is rejected", func() {
			before := ship.ID()
			err := g.RemapIDs(map[referrable.ID]referrable.ID{
				before:     2000,
				fleet.ID(): defiant.ID(),
			})
			Expect(codeOf(err)).To(Equal(referrable.CodeIDConflict))
			Expect(ship.ID()).To(Equal(before))
		})

		It("rejects duplicate and empty names", func() {
			_, err := g.AddShip(sol, "Scout", galaxy.Coords{}, terrans)
			Expect(codeOf(err)).To(Equal(galaxy.CodeDuplicateName))

			_, err = g.AddEmpire("  ")
			Expect(codeOf(err)).To(Equal(galaxy.CodeInvalidScenario))
		})
	})

	Describe("caching", func() {
		It("serves repeated observed queries from the cache", func() {
			_, err := observed.Abilities(ctx, fleet, nil)
			Expect(err).NotTo(HaveOccurred())
			before := g.Cache().Stats()

			_, err = observed.Abilities(ctx, fleet, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Cache().Stats().Hits).To(Equal(before.Hits + 1))
		})

		It("does not cache unobserved queries", func() {
			before := g.Cache().Stats()
			_, err := g.Engine(nil).Abilities(ctx, fleet, nil)
			Expect(err).NotTo(HaveOccurred())

			after := g.Cache().Stats()
			Expect(after.Hits).To(Equal(before.Hits))
			Expect(after.Misses).To(Equal(before.Misses))
			Expect(after.Entries).To(BeZero())
		})

		It("starts a new generation on every change", func() {
			gen := g.Cache().Generation()
			g.Grant(scout, "Fleet Speed", "1")
			Expect(g.Cache().Generation()).NotTo(Equal(gen))
		})
	})
})
