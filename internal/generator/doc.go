// Package generator issues license files.
//
// Batch mode reads a JSON document or an .xlsx workbook describing one
// license and writes {base}.{hardwareKey}.{YYYYMMDD}.lic into an output
// directory, the date being the expiration date given on the command line.
// Interactive mode prompts for the same data on a terminal.
//
// Example JSON input:
//
//	{
//	  "vender_name": "Acme",
//	  "app_name": "Widget",
//	  "mac": "11-22-33-AA-BB-CC",
//	  "features": [{"name": "pro", "version": "2", "num_lics": 3}]
//	}
package generator
