// Package garage holds types sharing simple names with the schema test fixtures.
package garage

// Car has the same simple name as the schema package's test Car.
type Car struct {
	Plate string
	Seats int
}
