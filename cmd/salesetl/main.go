// Command salesetl loads the sales workbook into the relational store.
package main

func main() {
	Execute()
}
