package models

import "fmt"

// Cell is one (role, city) pair of the search grid.
type Cell struct {
	Role     string `json:"role"`
	City     string `json:"city"`
	Location string `json:"location"`
}

// GoogleSearchTerm is the free-text query sent to boards that take one.
func (c Cell) GoogleSearchTerm() string {
	return fmt.Sprintf("%s jobs near %s since yesterday", c.Role, c.City)
}

func (c Cell) String() string {
	return fmt.Sprintf("%s in %s", c.Role, c.City)
}
