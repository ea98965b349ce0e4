// Copyright (c) LanMirror Authors.
// Licensed under the MIT License.

/*
包 mirror 管理局域网镜像服务器的生命周期，并向订阅者广播状态变化。

# 概述

Service 串联三个步骤：解析局域网 IPv4 地址、暂存 Web 资源、绑定端口
并开始服务。端口被占用时依次尝试 port+1，最多 MaxBindAttempts 次。
任何启动失败都会转换为带错误描述的 Stopped 状态。

# 状态广播

Broadcaster 为每个订阅者维护独立的无界 FIFO 邮箱与投递 goroutine：

  - 发布永不阻塞
  - 每个订阅者按发布顺序收到全部状态
  - 新订阅者首先收到当前状态
  - 回调 panic 会被恢复并记录

# 生命周期

  Stopped → Starting → Running → Stopped

Dispose 之后服务不可再启动，Status 仍返回最后的状态。
*/
package mirror
