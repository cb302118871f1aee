package main

import (
	"tableside/internal/domain"

	"github.com/shopspring/decimal"
)

func sampleMenu() []domain.MenuItem {
	item := func(name, description, price string) domain.MenuItem {
		return domain.MenuItem{
			Name:        name,
			Description: description,
			Price:       decimal.RequireFromString(price),
			Available:   true,
		}
	}
	return []domain.MenuItem{
		item("Margherita Pizza", "Classic tomato sauce with mozzarella cheese", "12.99"),
		item("Pepperoni Pizza", "Spicy pepperoni with melted cheese", "14.99"),
		item("Caesar Salad", "Fresh romaine lettuce with Caesar dressing", "8.99"),
		item("Chicken Wings", "Crispy wings with your choice of sauce", "11.99"),
		item("Pasta Carbonara", "Creamy pasta with bacon and parmesan", "13.99"),
		item("Burger Deluxe", "Beef burger with fries and drink", "15.99"),
		item("Fish & Chips", "Beer-battered cod with crispy fries", "16.99"),
		item("Chocolate Cake", "Rich chocolate cake with vanilla ice cream", "6.99"),
		item("Soft Drinks", "Coke, Sprite, or Fanta", "2.99"),
		item("Coffee", "Fresh brewed coffee", "3.99"),
	}
}
