package main

import (
	"fmt"
	"strconv"
)

func Steps() []map[string]interface{} {
	return []map[string]interface{}{
		{
			"keyword": "given",
			"pattern": `a basket with (\d+) apples`,
			"func": func(world map[string]interface{}, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return err
				}
				world["apples"] = n
				return nil
			},
		},
		{
			"keyword": "when",
			"text":    "I empty the basket",
			"func": func(world map[string]interface{}, args []string) error {
				world["apples"] = 0
				return nil
			},
		},
		{
			"keyword": "then",
			"pattern": `the basket holds (\d+) apples`,
			"func": func(world map[string]interface{}, args []string) error {
				want, err := strconv.Atoi(args[0])
				if err != nil {
					return err
				}
				if got := world["apples"]; got != want {
					return fmt.Errorf("basket holds %v apples, want %d", got, want)
				}
				return nil
			},
		},
		{
			"keyword": "before",
			"tags":    "@fruit",
			"func": func(world map[string]interface{}) error {
				world["hook"] = "ran"
				return nil
			},
		},
	}
}
