package main

func Steps() []map[string]interface{} {
	return []map[string]interface{}{
		{
			"keyword": "given",
			"pattern": "a step without a handler",
		},
	}
}
