/*
包 netaddr 负责发现本机面向局域网的 IPv4 地址。

# 概述

Resolver 枚举网络接口及其地址，跳过回环与非 IPv4 地址，优先选择
名称匹配 WiFi 特征（wlan、wifi、wlp 等）的接口上的地址；若无匹配，
则退回到枚举顺序中的第一个非回环 IPv4 地址。

解析结果在 Resolver 生命周期内缓存，后续调用不会重新枚举。
找不到地址返回 ErrNoAddress，这是可报告的状态而非致命错误。
*/
package netaddr
