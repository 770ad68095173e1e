// Package simulation drives a spreading process over a graph round by round.
//
// A Simulator validates its Config against the graph, builds round 0 with
// spreading.Initialize and then applies the model's spreading.Rule until a
// step changes nothing or the round cap is reached. Rounds are produced
// lazily through an iter.Seq, so a consumer (the interactive viewer, the
// history recorder, an exporter) can pull one round at a time and stop
// whenever it likes.
//
// Usage:
//
//	sim, err := simulation.New(g, simulation.Config{
//	    Model:      models.ModelCascade,
//	    Initiators: []string{"1", "2"},
//	    Threshold:  0.5,
//	    Lifespan:   10,
//	})
//	if err != nil {
//	    return err
//	}
//	for snap := range sim.Rounds() {
//	    fmt.Println(snap.Round, snap.NewTransitions)
//	}
//	fmt.Println(sim.Summary().Reason)
//
// The package also carries a small scenario harness (Scenario, RunScenario
// and the Assert helpers) used by tests here and in other packages.
package simulation
