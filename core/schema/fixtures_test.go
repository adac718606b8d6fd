package schema

import (
	"errors"
	"strings"
	"time"
)

type Car struct {
	Serial string `schema:"serial,id"`
	Make   string
	Year   int
	Color  string `schema:",enum=red|blue,default=red"`
}

func (Car) Kind() string { return "vehicle" }

type Person struct {
	Name     string
	Age      int
	Car      *Car
	Tags     []string
	Birthday time.Time
}

func describePerson(r *Registry) *Meta {
	return r.MustDescribe(Person{Name: "joe"}, WithProperty("adult", func(obj any) any {
		return obj.(*Person).Age >= 18
	}))
}

type Employee struct {
	Name    string
	Age     int
	Company string `schema:",default=acme"`
}

type Account struct {
	Email   string
	Balance int
}

func (a *Account) SetEmail(v string) {
	a.Email = strings.ToLower(v)
}

func (*Account) Kind() string { return "account" }

type Vehicle struct {
	Wheels int `schema:",default=4"`
	Name   string
}

func (v *Vehicle) SetName(name string) error {
	if name == "forbidden" {
		return errors.New("name not allowed")
	}
	v.Name = strings.ToUpper(name)
	return nil
}

type Truck struct {
	Vehicle
	Load float64
	Axle int `schema:"wheels"`
}

type Node struct {
	Label    string
	Children []*Node
}

type kinded interface {
	Kind() string
}

type countingObserver struct {
	loaded     int
	mismatches int
	extras     int
}

func (o *countingObserver) DocumentLoaded(string)                  { o.loaded++ }
func (o *countingObserver) AttributeMismatch(string, string, bool) { o.mismatches++ }
func (o *countingObserver) ExtrasFound(_ string, n int)            { o.extras += n }
