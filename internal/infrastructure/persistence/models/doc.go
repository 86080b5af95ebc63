// Package models holds the GORM row types. Domain types carry no ORM tags;
// each model converts to and from its aggregate with ToDomain and
// <Model>FromDomain.
package models
