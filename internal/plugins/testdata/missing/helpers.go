package main

// A plugin file that forgets to define Steps.

func Definitions() []map[string]interface{} {
	return nil
}
