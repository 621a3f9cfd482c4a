// Command authd runs the role and permission authentication service.
//
// @title                       authd API
// @version                     1.0
// @description                 Role and permission based authentication service issuing signed bearer tokens.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

func main() {
	Execute()
}
