/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/OkanBey11/ToDoApiWithGemini/cmd"

//	@title						ToDo API
//	@version					1.0
//	@description				Multi-user task tracking with bearer-token authentication.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
func main() {
	cmd.Execute()
}
