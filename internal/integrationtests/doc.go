// Package integrationtests runs whole grids through the application.
package integrationtests
