// Package gherkin parses Given/When/Then feature files into the immutable
// AST the execution engine consumes.
//
// The supported grammar is the classic feature-file subset:
//
//	@tags
//	Feature: name
//	  description lines
//
//	  Background:
//	    Given ...
//
//	  @tags
//	  Scenario: name
//	    Given a step
//	    And another step
//	    When something happens
//	    Then an outcome
//	      | attached | table |
//	    And a step with a doc string
//	      """json
//	      { "payload": true }
//	      """
//
//	  Scenario Outline: name
//	    Given <param> placeholders
//	    Examples:
//	      | param |
//	      | value |
//
// And/But/* steps inherit the keyword class of the nearest preceding
// Given/When/Then. Scenario Outlines are expanded at parse time so that the
// engine only ever sees concrete scenarios. Rule blocks are not part of the
// grammar and are rejected.
//
// Parsing is a pure function of the input text; discovery (LoadFeatures)
// is the only place this package touches the filesystem.
package gherkin
