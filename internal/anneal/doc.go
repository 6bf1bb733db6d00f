// Package anneal implements a bounded global minimizer based on adaptive
// simulated annealing.
//
// A problem is described by a CostFunction: a fixed dimension, one scalar lower
// and upper bound shared by every coordinate, and a side-effect-free Evaluate.
// Infeasible points are expressed by returning +Inf; the optimizer never moves
// its current state onto such a point, so cost functions can steer the search
// away from invalid regions without returning errors.
//
// # Algorithm
//
// Starting from x0 the optimizer runs dimension*IterationsPerDimension
// iterations. Each iteration:
//
//  1. Computes the temperature T(k) from the cooling schedule, floored at 1e-8.
//  2. Draws a random unit direction and steps T (fast) or sqrt(T) (Boltzmann)
//     along it. A step leaving the bounds is halved and redrawn, at most
//     MaxStepRetries times, after which the candidate is clamped into bounds.
//  3. Evaluates the candidate and keeps the best point seen.
//  4. Counts consecutive iterations whose energy change is below Tolerance and
//     stops once that count exceeds a fifth of the iteration budget.
//  5. Accepts the candidate if it lowers the energy, or otherwise with the
//     Metropolis probability exp(-dE/T_accept). T_accept is the current
//     temperature by default (AcceptanceBoltzmann), or the temperature at which
//     the best point was found (AcceptanceAdaptive).
//
// # Concurrency
//
// An Optimizer owns its random source and is not safe for concurrent use.
// Create one Optimizer per goroutine; instances never share state.
package anneal
