package postgres

import (
	"fmt"
	"strings"
)

// defaultListLimit applies when a listing does not set a limit
const defaultListLimit = 100

// conditions accumulates WHERE clauses and their positional arguments
type conditions struct {
	clauses []string
	args    []interface{}
}

// add appends a clause whose placeholders, written as ?, all bind arg
func (c *conditions) add(clause string, arg interface{}) {
	c.args = append(c.args, arg)
	c.clauses = append(c.clauses, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(c.args))))
}

// addRaw appends a clause without arguments
func (c *conditions) addRaw(clause string) {
	c.clauses = append(c.clauses, clause)
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// page appends LIMIT and OFFSET placeholders
func (c *conditions) page(limit, offset int) string {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	c.args = append(c.args, limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(c.args)-1, len(c.args))
}
